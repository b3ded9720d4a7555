package ldaps

import (
	"context"
)

// Ping checks the directory accepts connections. It does not bind.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}
