package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardoC/lovegpt/internal/models"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	database, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	version, err := database.Migrate()
	require.NoError(t, err)
	require.Equal(t, uint(1), version)
	return database
}

func seed(t *testing.T, database *Database) (*models.User, *models.Robot) {
	t.Helper()
	ctx := context.Background()
	user, err := database.CreateUser(ctx, "a@x.com", "hash")
	require.NoError(t, err)
	robot, err := database.CreateRobot(ctx, "Alex", "warm and caring")
	require.NoError(t, err)
	return user, robot
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := newTestDatabase(t)

	version, err := database.Migrate()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)

	user, err := database.CreateUser(ctx, "a@x.com", "hash")
	require.NoError(t, err)
	assert.Positive(t, user.ID)

	got, err := database.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
	assert.Equal(t, "hash", got.PasswordHash)

	byEmail, err := database.GetUserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = database.CreateUser(ctx, "a@x.com", "other")
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = database.GetUser(ctx, user.ID+100)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = database.GetUserByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRobots(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)

	robot, err := database.CreateRobot(ctx, "Alex", "warm and caring")
	require.NoError(t, err)

	first, err := database.GetRobot(ctx, robot.ID)
	require.NoError(t, err)
	second, err := database.GetRobot(ctx, robot.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "Alex", first.Name)
	assert.Equal(t, "warm and caring", first.Description)

	_, err = database.GetRobot(ctx, robot.ID+1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMessagesForConversationsOrdering(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	user, robot := seed(t, database)

	base := time.Date(2023, 7, 31, 5, 21, 4, 0, time.UTC)
	inputs := []struct {
		conv   int64
		text   string
		offset time.Duration
	}{
		{23, "third", 3 * time.Second},
		{22, "first", time.Second},
		{23, "second", 2 * time.Second},
		{99, "other conversation", 0},
	}
	for _, in := range inputs {
		msg := &models.ChatMessage{
			Message:        in.text,
			ConversationID: in.conv,
			UserID:         user.ID,
			RobotID:        robot.ID,
			UpdateTime:     base.Add(in.offset),
		}
		require.NoError(t, database.SaveMessage(ctx, msg))
		assert.Positive(t, msg.ID)
	}

	messages, err := database.MessagesForConversations(ctx, user.ID, []int64{22, 23})
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Message)
	assert.Equal(t, "second", messages[1].Message)
	assert.Equal(t, "third", messages[2].Message)

	none, err := database.MessagesForConversations(ctx, user.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEqualTimestampsFallBackToID(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	user, robot := seed(t, database)

	at := time.Date(2023, 7, 31, 16, 53, 16, 0, time.UTC)
	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, database.SaveMessage(ctx, &models.ChatMessage{
			Message: text, ConversationID: 1, UserID: user.ID, RobotID: robot.ID, UpdateTime: at,
		}))
	}

	messages, err := database.ConversationHistory(ctx, user.ID, robot.ID, 1)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "a", messages[0].Message)
	assert.Equal(t, "b", messages[1].Message)
	assert.Equal(t, "c", messages[2].Message)
}

func TestSaveMessageUnknownReferences(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	user, _ := seed(t, database)

	err := database.SaveMessage(ctx, &models.ChatMessage{
		Message: "hi", ConversationID: 1, UserID: user.ID, RobotID: 404,
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSaveExchangeIsAtomic(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	user, robot := seed(t, database)

	userMsg := &models.ChatMessage{Message: "hello", ConversationID: 7, UserID: user.ID, RobotID: robot.ID}
	badReply := &models.ChatMessage{Message: "hi", ConversationID: 7, UserID: user.ID, RobotID: robot.ID + 50, IsRobot: true}
	require.Error(t, database.SaveExchange(ctx, userMsg, badReply))

	messages, err := database.ConversationHistory(ctx, user.ID, robot.ID, 7)
	require.NoError(t, err)
	assert.Empty(t, messages)

	userMsg = &models.ChatMessage{Message: "hello", ConversationID: 7, UserID: user.ID, RobotID: robot.ID}
	reply := &models.ChatMessage{Message: "hi", ConversationID: 7, UserID: user.ID, RobotID: robot.ID, IsRobot: true}
	require.NoError(t, database.SaveExchange(ctx, userMsg, reply))

	messages, err = database.ConversationHistory(ctx, user.ID, robot.ID, 7)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.False(t, messages[0].IsRobot)
	assert.True(t, messages[1].IsRobot)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	database := newTestDatabase(t)
	boom := errors.New("boom")

	err := database.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO robots (robot_name, description, created_at) VALUES ($1, $2, $3)`,
			"ghost", "never committed", time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, models.ErrStorage)

	var count int
	require.NoError(t, database.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM robots`).Scan(&count))
	assert.Zero(t, count)
}
