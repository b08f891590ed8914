package notionsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dvloznov/fintrack/internal/domain"
	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotion struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePageFunc    func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePageFunc    func(ctx context.Context, pageID string) error

	created []notionapi.Properties
	updated []string
	deleted []string
}

func (m *mockNotion) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.CreatePageFunc != nil {
		return m.CreatePageFunc(ctx, databaseID, properties)
	}
	m.created = append(m.created, properties)
	return &notionapi.Page{ID: "new-page"}, nil
}

func (m *mockNotion) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.UpdatePageFunc != nil {
		return m.UpdatePageFunc(ctx, pageID, properties)
	}
	m.updated = append(m.updated, pageID)
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (m *mockNotion) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if m.QueryDatabaseFunc != nil {
		return m.QueryDatabaseFunc(ctx, databaseID, req)
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (m *mockNotion) DeletePage(ctx context.Context, pageID string) error {
	if m.DeletePageFunc != nil {
		return m.DeletePageFunc(ctx, pageID)
	}
	m.deleted = append(m.deleted, pageID)
	return nil
}

func page(id, txID string) notionapi.Page {
	props := notionapi.Properties{}
	if txID != "" {
		props[PropTransactionID] = &notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{PlainText: txID}},
		}
	}
	return notionapi.Page{ID: notionapi.ObjectID(id), Properties: props}
}

func ledger() []domain.Transaction {
	day := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	return []domain.Transaction{
		{ID: "l1", Type: domain.TypeLent, Amount: 1000, PaymentMethodID: "p4", Date: day, Note: "Ravi",
			PartialReturns: []domain.PartialReturn{{ID: "r1", Amount: 250, Date: day}}},
		{ID: "l2", Type: domain.TypeLent, Amount: 500, PaymentMethodID: "p1", Date: day, Note: "Meera"},
		{ID: "e1", Type: domain.TypeExpense, Amount: 80, CategoryID: "1", PaymentMethodID: "p1", Date: day},
	}
}

func TestSyncLent_CreatesUpdatesAndArchives(t *testing.T) {
	m := &mockNotion{
		QueryDatabaseFunc: func(context.Context, string, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{page("page-l1", "l1"), page("page-orphan", ""), page("page-gone", "l9")},
			}, nil
		},
	}

	report, err := SyncLent(context.Background(), m, "db", ledger(), domain.DefaultPaymentMethods(), false)
	require.NoError(t, err)

	assert.Equal(t, Report{Created: 1, Updated: 1, Deleted: 2}, report)
	assert.Equal(t, []string{"page-l1"}, m.updated)
	assert.ElementsMatch(t, []string{"page-orphan", "page-gone"}, m.deleted)

	require.Len(t, m.created, 1)
	title := m.created[0][PropCounterparty].(notionapi.TitleProperty)
	assert.Equal(t, "Meera", title.Title[0].Text.Content)
}

func TestSyncLent_DuplicatePagesArchived(t *testing.T) {
	m := &mockNotion{
		QueryDatabaseFunc: func(context.Context, string, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{
				Results: []notionapi.Page{page("a", "l1"), page("b", "l1"), page("c", "l2")},
			}, nil
		},
	}

	report, err := SyncLent(context.Background(), m, "db", ledger(), nil, false)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, []string{"b"}, m.deleted)
}

func TestSyncLent_DryRunWritesNothing(t *testing.T) {
	m := &mockNotion{
		QueryDatabaseFunc: func(context.Context, string, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{page("page-l1", "l1"), page("x", "")}}, nil
		},
	}

	report, err := SyncLent(context.Background(), m, "db", ledger(), nil, true)
	require.NoError(t, err)

	assert.Equal(t, Report{Created: 1, Updated: 1, Deleted: 1}, report)
	assert.Empty(t, m.created)
	assert.Empty(t, m.updated)
	assert.Empty(t, m.deleted)
}

func TestSyncLent_Pagination(t *testing.T) {
	var cursors []notionapi.Cursor
	m := &mockNotion{
		QueryDatabaseFunc: func(_ context.Context, _ string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			cursors = append(cursors, req.StartCursor)
			if req.StartCursor == "" {
				return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{page("p1", "l1")}, HasMore: true, NextCursor: "next"}, nil
			}
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{page("p2", "l2")}}, nil
		},
	}

	report, err := SyncLent(context.Background(), m, "db", ledger(), nil, false)
	require.NoError(t, err)

	assert.Equal(t, []notionapi.Cursor{"", "next"}, cursors)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 0, report.Created)
}

func TestSyncLent_Errors(t *testing.T) {
	boom := errors.New("notion down")

	_, err := SyncLent(context.Background(), &mockNotion{
		QueryDatabaseFunc: func(context.Context, string, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return nil, boom
		},
	}, "db", ledger(), nil, false)
	require.ErrorIs(t, err, boom)

	report, err := SyncLent(context.Background(), &mockNotion{
		CreatePageFunc: func(context.Context, string, notionapi.Properties) (*notionapi.Page, error) {
			return nil, boom
		},
	}, "db", ledger(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 0, report.Created)
}

func TestLentToNotionProperties(t *testing.T) {
	tx := ledger()[0]

	props := LentToNotionProperties(tx, domain.DefaultPaymentMethods())

	assert.Equal(t, 1000.0, props[PropAmount].(notionapi.NumberProperty).Number)
	assert.Equal(t, 250.0, props[PropReturned].(notionapi.NumberProperty).Number)
	assert.Equal(t, 750.0, props[PropOutstanding].(notionapi.NumberProperty).Number)
	assert.Equal(t, "Outstanding", props[PropStatus].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, "UPI", props[PropPaymentMethod].(notionapi.SelectProperty).Select.Name)
	assert.NotContains(t, props, PropReturnedDate)

	returnedAt := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	tx.IsReturned = true
	tx.ReturnedDate = &returnedAt
	tx.Note = ""

	props = LentToNotionProperties(tx, nil)

	assert.Equal(t, "Returned", props[PropStatus].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, 0.0, props[PropOutstanding].(notionapi.NumberProperty).Number)
	assert.Equal(t, domain.UnknownLabel, props[PropCounterparty].(notionapi.TitleProperty).Title[0].Text.Content)
	assert.Equal(t, domain.UnknownLabel, props[PropPaymentMethod].(notionapi.SelectProperty).Select.Name)
	require.Contains(t, props, PropReturnedDate)
}
