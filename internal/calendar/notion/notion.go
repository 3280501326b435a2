// Package notion backs the calendar collaborator with a Notion database.
// Each projected occurrence becomes a page; the origin type and ID are
// stored as properties so occurrences can be located and cascade-deleted
// when their source transaction is deleted.
package notion

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"

	"github.com/omnitrack/ledger/internal/calendar"
	"github.com/omnitrack/ledger/internal/domain"
	"github.com/omnitrack/ledger/internal/logger"
)

// Property names expected on the target Notion database.
const (
	propTitle      = "Name"
	propDate       = "Date"
	propOriginType = "Origin Type"
	propOriginID   = "Origin ID"
)

// Calendar implements calendar.Calendar on top of a Notion database.
type Calendar struct {
	service    Service
	databaseID string
}

// New creates a Notion-backed calendar writing to the given database.
func New(service Service, databaseID string) *Calendar {
	return &Calendar{
		service:    service,
		databaseID: databaseID,
	}
}

// CreateEvent implements calendar.Calendar.
func (c *Calendar) CreateEvent(ctx context.Context, ev domain.ProjectedEvent) error {
	_, err := c.service.CreatePage(ctx, c.databaseID, eventToProperties(ev))
	if err != nil {
		return fmt.Errorf("notion calendar: creating event page: %w", err)
	}
	return nil
}

// DeleteByOrigin implements calendar.Calendar. It pages through the
// database query results and archives every matching page.
func (c *Calendar) DeleteByOrigin(ctx context.Context, originType, originID string) (int, error) {
	log := logger.FromContext(ctx)

	req := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.AndCompoundFilter{
			notionapi.PropertyFilter{
				Property: propOriginType,
				RichText: &notionapi.TextFilterCondition{Equals: originType},
			},
			notionapi.PropertyFilter{
				Property: propOriginID,
				RichText: &notionapi.TextFilterCondition{Equals: originID},
			},
		},
	}

	deleted := 0
	for {
		resp, err := c.service.QueryDatabase(ctx, c.databaseID, req)
		if err != nil {
			return deleted, fmt.Errorf("notion calendar: querying events by origin: %w", err)
		}

		for _, page := range resp.Results {
			if err := c.service.DeletePage(ctx, string(page.ID)); err != nil {
				return deleted, fmt.Errorf("notion calendar: archiving page %s: %w", page.ID, err)
			}
			deleted++
		}

		if !resp.HasMore {
			break
		}
		req.StartCursor = resp.NextCursor
	}

	log.Debug().
		Str("origin_type", originType).
		Str("origin_id", originID).
		Int("deleted", deleted).
		Msg("Cascade-deleted projected events")

	return deleted, nil
}

func eventToProperties(ev domain.ProjectedEvent) notionapi.Properties {
	start := notionapi.Date(time.Date(
		ev.Date.Year, ev.Date.Month, ev.Date.Day,
		0, 0, 0, 0, time.UTC,
	))

	return notionapi.Properties{
		propTitle: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: ev.Title},
				},
			},
		},
		propDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &start},
		},
		propOriginType: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: ev.OriginType},
				},
			},
		},
		propOriginID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: ev.OriginID},
				},
			},
		},
	}
}

// Ensure Calendar implements the collaborator interface.
var _ calendar.Calendar = (*Calendar)(nil)
