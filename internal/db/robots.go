package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/lovegpt/internal/models"
)

func (d *Database) CreateRobot(ctx context.Context, name, description string) (*models.Robot, error) {
	robot := &models.Robot{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO robots (robot_name, description, created_at)
			VALUES ($1, $2, $3)
			RETURNING id`,
			robot.Name, robot.Description, robot.CreatedAt).Scan(&robot.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create robot: %w", err)
	}
	return robot, nil
}

func (d *Database) GetRobot(ctx context.Context, id int64) (*models.Robot, error) {
	var robot models.Robot
	err := d.db.QueryRowContext(ctx, `
		SELECT id, robot_name, description, created_at
		FROM robots
		WHERE id = $1`, id).Scan(&robot.ID, &robot.Name, &robot.Description, &robot.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("robot %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("get robot: %w", err))
	}
	return &robot, nil
}
