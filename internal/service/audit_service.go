package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"portal/internal/apperr"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/pkg/pagination"
	"portal/pkg/redact"

	"github.com/google/uuid"
)

// AuditEntry is one mutation to record
type AuditEntry struct {
	ActorID  *uuid.UUID
	Action   string
	Entity   string
	EntityID string
	Details  map[string]interface{}
	IP       string
}

// AuditFilter narrows the admin read surface. From/To are day-granularity
// dates ("2006-01-02") converted to inclusive UTC day boundaries.
type AuditFilter struct {
	Entity string
	UserID string
	From   string
	To     string
	Query  string
	Page   int
	Limit  int
}

type AuditLogResponse struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id,omitempty"`
	Action    string      `json:"action"`
	Entity    string      `json:"entity,omitempty"`
	EntityID  string      `json:"entity_id,omitempty"`
	Details   interface{} `json:"details"`
	IPAddress string      `json:"ip_address"`
	CreatedAt string      `json:"created_at"`
}

// AuditService writes the append-only trail and serves its redacted read side
type AuditService interface {
	// Record inserts one immutable row as the last step of a successful
	// mutation. It is best-effort: failures are logged operationally and
	// never become the triggering request's error.
	Record(ctx context.Context, e AuditEntry)
	List(ctx context.Context, f AuditFilter) ([]AuditLogResponse, int64, error)
}

// feed receives redacted audit events for live dashboards; Publish must not block
type feed interface {
	Publish(msg []byte)
}

type auditService struct {
	repo repository.AuditRepository
	feed feed
}

// NewAuditService creates an AuditService. feed may be nil.
func NewAuditService(repo repository.AuditRepository, f feed) AuditService {
	return &auditService{repo: repo, feed: f}
}

func (s *auditService) Record(ctx context.Context, e AuditEntry) {
	details := "{}"
	if e.Details != nil {
		if raw, err := json.Marshal(e.Details); err == nil {
			details = string(raw)
		} else {
			log.Printf("audit: failed to marshal details for action %s: %v", e.Action, err)
		}
	}

	row := &model.AuditLog{
		UserID:    e.ActorID,
		Action:    e.Action,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Details:   details,
		IPAddress: e.IP,
	}
	if err := s.repo.Append(ctx, row); err != nil {
		// The business mutation is already committed; never roll it back
		// or surface this to the caller.
		log.Printf("audit: failed to record action %s: %v", e.Action, err)
		return
	}

	if s.feed != nil {
		event := map[string]interface{}{
			"type":       "audit",
			"action":     e.Action,
			"entity":     e.Entity,
			"entity_id":  e.EntityID,
			"details":    redact.Value(toJSONValue(e.Details)),
			"created_at": row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if e.ActorID != nil {
			event["user_id"] = e.ActorID.String()
		}
		if msg, err := json.Marshal(event); err == nil {
			s.feed.Publish(msg)
		}
	}
}

func (s *auditService) List(ctx context.Context, f AuditFilter) ([]AuditLogResponse, int64, error) {
	params := pagination.Clamp(f.Page, f.Limit)

	q := repository.AuditQuery{
		Entity: f.Entity,
		Search: f.Query,
		Page:   params.Page,
		Limit:  params.Limit,
	}

	if f.UserID != "" {
		uid, err := uuid.Parse(f.UserID)
		if err != nil {
			return nil, 0, apperr.Validation("user_id", "must be a valid UUID")
		}
		q.UserID = &uid
	}

	from, to, err := dayRange(f.From, f.To)
	if err != nil {
		return nil, 0, err
	}
	q.From = from
	q.To = to

	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(rows))
	for _, row := range rows {
		userID := ""
		if row.UserID != nil {
			userID = row.UserID.String()
		}
		res = append(res, AuditLogResponse{
			ID:        row.ID.String(),
			UserID:    userID,
			Action:    row.Action,
			Entity:    row.Entity,
			EntityID:  row.EntityID,
			Details:   redactDetails(row.Details),
			IPAddress: row.IPAddress,
			CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return res, total, nil
}

// dayRange converts day-granularity date strings into inclusive UTC bounds:
// from 00:00:00.000 through to 23:59:59.999.
func dayRange(from, to string) (*time.Time, *time.Time, error) {
	var lower, upper *time.Time
	if from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, time.UTC)
		if err != nil {
			return nil, nil, apperr.Validation("from", "must be a date in YYYY-MM-DD format")
		}
		lower = &t
	}
	if to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, time.UTC)
		if err != nil {
			return nil, nil, apperr.Validation("to", "must be a date in YYYY-MM-DD format")
		}
		end := t.Add(24*time.Hour - time.Millisecond)
		upper = &end
	}
	return lower, upper, nil
}

// redactDetails masks sensitive keys in the stored JSON on the read path.
// Persisted rows are never touched.
func redactDetails(details string) interface{} {
	if details == "" {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(details), &v); err != nil {
		// Not valid JSON; return as an opaque string rather than dropping it
		return details
	}
	return redact.Value(v)
}

// toJSONValue round-trips a details map through JSON typing so redaction
// sees the same shapes it sees on the read path
func toJSONValue(details map[string]interface{}) interface{} {
	if details == nil {
		return map[string]interface{}{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return map[string]interface{}{}
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]interface{}{}
	}
	return v
}
