package models

import "time"

// MaxMessageLength bounds the stored text of a single chat message.
const MaxMessageLength = 10000

// ChatMessage is one turn of a conversation between a user and a robot.
type ChatMessage struct {
	ID             int64     `json:"id"`
	Message        string    `json:"message"`
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	RobotID        int64     `json:"robot_id"`
	IsRobot        bool      `json:"is_robot"`
	UpdateTime     time.Time `json:"update_time"`
}

// Sender labels the author of the message as shown in transcripts.
func (m ChatMessage) Sender() string {
	if m.IsRobot {
		return "robot"
	}
	return "user"
}
