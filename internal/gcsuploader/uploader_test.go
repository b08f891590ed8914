package gcsuploader

import "testing"

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{name: "nested object", uri: "gs://bucket/exports/2024.tsv", wantBucket: "bucket", wantObject: "exports/2024.tsv"},
		{name: "top-level object", uri: "gs://bucket/file.tsv", wantBucket: "bucket", wantObject: "file.tsv"},
		{name: "missing scheme", uri: "bucket/file.tsv", wantErr: true},
		{name: "no object", uri: "gs://bucket", wantErr: true},
		{name: "empty object", uri: "gs://bucket/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGCSURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseGCSURI(%q) = %q, %q; want %q, %q", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/exports/2024.tsv": "2024.tsv",
		"gs://bucket/file.json":        "file.json",
		"gs://bucket":                  "bucket",
	}

	for uri, want := range tests {
		if got := ExtractFilenameFromGCSURI(uri); got != want {
			t.Errorf("ExtractFilenameFromGCSURI(%q) = %q, want %q", uri, got, want)
		}
	}
}
