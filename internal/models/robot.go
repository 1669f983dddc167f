package models

import "time"

// Robot is a persona the completion API plays. Description is sent as the
// system prompt of every completion request for the robot.
type Robot struct {
	ID          int64     `json:"id"`
	Name        string    `json:"robot_name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"-"`
}
