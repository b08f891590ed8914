package notionsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/jomei/notionapi"
)

// NotionClient implements NotionService on top of the notionapi SDK.
type NotionClient struct {
	client *notionapi.Client
}

// NewNotionClient creates a client authenticated with an integration token.
func NewNotionClient(token string) (*NotionClient, error) {
	if token == "" {
		return nil, errors.New("NewNotionClient: token is required")
	}
	return &NotionClient{
		client: notionapi.NewClient(notionapi.Token(token)),
	}, nil
}

// CreatePage adds a page to the database.
func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := n.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}
	return page, nil
}

// UpdatePage overwrites the given properties of a page.
func (n *NotionClient) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("UpdatePage %s: %w", pageID, err)
	}
	return page, nil
}

// QueryDatabase runs one page of a database query.
func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return nil, fmt.Errorf("QueryDatabase: %w", err)
	}
	return resp, nil
}

// DeletePage archives a page. Notion has no hard delete.
func (n *NotionClient) DeletePage(ctx context.Context, pageID string) error {
	if _, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Archived:   true,
		Properties: notionapi.Properties{},
	}); err != nil {
		return fmt.Errorf("DeletePage %s: %w", pageID, err)
	}
	return nil
}
