package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/SimonWaldherr/sqlmystery/internal/query"
	"github.com/SimonWaldherr/sqlmystery/internal/store"
)

// Client calls a remote Mystery service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to addr without transport security. Extra options are
// appended after the defaults.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close releases the connection.
func (c *Client) Close() error { return c.conn.Close() }

// Query runs sql remotely. A rejected statement is a Failed outcome, not an
// error; errors are transport problems.
func (c *Client) Query(ctx context.Context, sql string) (query.Outcome, error) {
	var out query.Outcome
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Query", &QueryRequest{SQL: sql}, &out); err != nil {
		return query.Outcome{}, err
	}
	return out, nil
}

// Check submits an answer.
func (c *Client) Check(ctx context.Context, answer string) (bool, error) {
	var resp CheckResponse
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Check", &CheckRequest{Answer: answer}, &resp); err != nil {
		return false, err
	}
	return resp.Correct, nil
}

// Schema lists the materialized tables.
func (c *Client) Schema(ctx context.Context) ([]store.TableInfo, error) {
	var resp SchemaResponse
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Schema", &SchemaRequest{}, &resp); err != nil {
		return nil, err
	}
	return resp.Tables, nil
}
