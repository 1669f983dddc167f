package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/RichardoC/lovegpt/internal/models"
)

const messageColumns = `id, message, conversation_id, user_id, robot_id, is_robot, update_time`

// SaveMessage stores a single chat message. UpdateTime defaults to now when
// the caller leaves it zero.
func (d *Database) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		return insertMessage(ctx, tx, msg)
	})
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// SaveExchange stores a user message and the robot reply in one commit.
func (d *Database) SaveExchange(ctx context.Context, userMsg, reply *models.ChatMessage) error {
	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insertMessage(ctx, tx, userMsg); err != nil {
			return err
		}
		return insertMessage(ctx, tx, reply)
	})
	if err != nil {
		return fmt.Errorf("save exchange: %w", err)
	}
	return nil
}

func insertMessage(ctx context.Context, q queryRower, msg *models.ChatMessage) error {
	if msg.UpdateTime.IsZero() {
		msg.UpdateTime = time.Now().UTC()
	}
	return q.QueryRowContext(ctx, `
		INSERT INTO chathistory (message, conversation_id, user_id, robot_id, is_robot, update_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		msg.Message, msg.ConversationID, msg.UserID, msg.RobotID, msg.IsRobot, msg.UpdateTime).Scan(&msg.ID)
}

// MessagesForConversations returns every message of userID whose
// conversation id is in conversationIDs, oldest first.
func (d *Database) MessagesForConversations(ctx context.Context, userID int64, conversationIDs []int64) ([]models.ChatMessage, error) {
	if len(conversationIDs) == 0 {
		return []models.ChatMessage{}, nil
	}

	placeholders := make([]string, len(conversationIDs))
	args := make([]any, 0, len(conversationIDs)+1)
	args = append(args, userID)
	for i, id := range conversationIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := `SELECT ` + messageColumns + `
		FROM chathistory
		WHERE user_id = $1 AND conversation_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY update_time ASC, id ASC`

	return d.queryMessages(ctx, query, args...)
}

// ConversationHistory returns the transcript of one conversation between a
// user and a robot, oldest first.
func (d *Database) ConversationHistory(ctx context.Context, userID, robotID, conversationID int64) ([]models.ChatMessage, error) {
	return d.queryMessages(ctx, `SELECT `+messageColumns+`
		FROM chathistory
		WHERE user_id = $1 AND robot_id = $2 AND conversation_id = $3
		ORDER BY update_time ASC, id ASC`,
		userID, robotID, conversationID)
}

func (d *Database) queryMessages(ctx context.Context, query string, args ...any) ([]models.ChatMessage, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("query messages: %w", err))
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.Message, &msg.ConversationID, &msg.UserID,
			&msg.RobotID, &msg.IsRobot, &msg.UpdateTime); err != nil {
			return nil, classify(fmt.Errorf("scan message: %w", err))
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("iterate messages: %w", err))
	}
	return messages, nil
}
