package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/maimweb/backend/internal/model"
)

var _ AdminStore = (*Repository)(nil)

// ListChatHistory returns a page of chat history for the agents in scope,
// newest first, together with the total number of matching rows.
func (r *Repository) ListChatHistory(ctx context.Context, filter AdminFilter) ([]*model.ChatHistory, int, error) {
	if len(filter.AgentIDs) == 0 {
		return []*model.ChatHistory{}, 0, nil
	}

	total, err := r.count(ctx, `SELECT COUNT(*) FROM chat_histories WHERE agent_id = ANY($1)`,
		pq.Array(filter.AgentIDs))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count chat history: %w", err)
	}

	query := `
		SELECT id, agent_id, session_id, user_id, user_message, assistant_message, created_at
		FROM chat_histories
		WHERE agent_id = ANY($1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, pq.Array(filter.AgentIDs), filter.Size, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list chat history: %w", err)
	}
	defer rows.Close()

	items := make([]*model.ChatHistory, 0)
	for rows.Next() {
		var h model.ChatHistory
		var userID *string
		if err := rows.Scan(&h.ID, &h.AgentID, &h.SessionID, &userID,
			&h.UserMessage, &h.AssistantMessage, &h.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan chat history: %w", err)
		}
		h.UserID = derefString(userID)
		items = append(items, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating chat history: %w", err)
	}

	return items, total, nil
}

// ListFiles returns a page of uploaded files for the agents in scope.
func (r *Repository) ListFiles(ctx context.Context, filter AdminFilter) ([]*model.FileUpload, int, error) {
	if len(filter.AgentIDs) == 0 {
		return []*model.FileUpload{}, 0, nil
	}

	total, err := r.count(ctx, `SELECT COUNT(*) FROM file_uploads WHERE agent_id = ANY($1)`,
		pq.Array(filter.AgentIDs))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %w", err)
	}

	query := `
		SELECT id, agent_id, original_filename, file_path, file_size, mime_type, created_at
		FROM file_uploads
		WHERE agent_id = ANY($1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, pq.Array(filter.AgentIDs), filter.Size, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	items := make([]*model.FileUpload, 0)
	for rows.Next() {
		var f model.FileUpload
		var mimeType *string
		if err := rows.Scan(&f.ID, &f.AgentID, &f.OriginalFilename, &f.FilePath,
			&f.FileSize, &mimeType, &f.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan file: %w", err)
		}
		f.MimeType = derefString(mimeType)
		items = append(items, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating files: %w", err)
	}

	return items, total, nil
}

// ListMetrics returns a page of metric samples for the agents in scope,
// optionally restricted to one metric name.
func (r *Repository) ListMetrics(ctx context.Context, filter AdminFilter) ([]*model.SystemMetric, int, error) {
	if len(filter.AgentIDs) == 0 {
		return []*model.SystemMetric{}, 0, nil
	}

	where := `WHERE agent_id = ANY($1) AND ($2::text = '' OR metric_name = $2::text)`

	total, err := r.count(ctx, `SELECT COUNT(*) FROM system_metrics `+where,
		pq.Array(filter.AgentIDs), filter.MetricName)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count metrics: %w", err)
	}

	query := `
		SELECT id, agent_id, metric_name, metric_value, metric_unit, tags, created_at
		FROM system_metrics
		` + where + `
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, pq.Array(filter.AgentIDs), filter.MetricName, filter.Size, filter.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list metrics: %w", err)
	}
	defer rows.Close()

	items := make([]*model.SystemMetric, 0)
	for rows.Next() {
		var m model.SystemMetric
		var agentID, unit *string
		var tags []byte
		if err := rows.Scan(&m.ID, &agentID, &m.MetricName, &m.MetricValue,
			&unit, &tags, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan metric: %w", err)
		}
		m.AgentID = derefString(agentID)
		m.MetricUnit = derefString(unit)
		m.Tags = tags
		items = append(items, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating metrics: %w", err)
	}

	return items, total, nil
}

func (r *Repository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
