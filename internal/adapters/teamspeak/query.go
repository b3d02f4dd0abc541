package teamspeak

import (
	"context"
	"fmt"
	"time"

	"github.com/multiplay/go-ts3"
)

// Query is one logged-in ServerQuery connection bound to a virtual server.
type Query interface {
	GroupList() ([]Group, error)
	ClientDBID(uniqueID string) (int, error)
	GroupAddClient(groupID, clientDBID int) error
	GroupDelClient(groupID, clientDBID int) error
	Close() error
}

// Group is a server group.
type Group struct {
	ID   int
	Name string
}

// Dialer opens a Query connection.
type Dialer func(ctx context.Context) (Query, error)

// QueryConfig holds ServerQuery connection parameters.
type QueryConfig struct {
	Addr        string
	User        string
	Password    string
	VirtualPort int
}

const defaultDialTimeout = 10 * time.Second

// NewDialer returns a Dialer that connects, logs in and selects the virtual
// server on every call.
func NewDialer(cfg QueryConfig) Dialer {
	return func(ctx context.Context) (Query, error) {
		timeout := defaultDialTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
			if timeout <= 0 {
				return nil, context.DeadlineExceeded
			}
		}
		c, err := ts3.NewClient(cfg.Addr, ts3.Timeout(timeout))
		if err != nil {
			return nil, fmt.Errorf("connect serverquery: %w", err)
		}
		if err := c.Login(cfg.User, cfg.Password); err != nil {
			_ = c.Close()
			return nil, err
		}
		if err := c.UsePort(cfg.VirtualPort); err != nil {
			_ = c.Close()
			return nil, err
		}
		return &ts3Query{client: c}, nil
	}
}

type ts3Query struct {
	client *ts3.Client
}

func (q *ts3Query) GroupList() ([]Group, error) {
	groups, err := q.client.Server.GroupList()
	if err != nil {
		return nil, err
	}
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, Group{ID: g.ID, Name: g.Name})
	}
	return out, nil
}

func (q *ts3Query) ClientDBID(uniqueID string) (int, error) {
	var resp struct {
		UniqueID   string `ms:"cluid"`
		ClientDBID int    `ms:"cldbid"`
	}
	cmd := ts3.NewCmd("clientgetdbidfromuid").WithArgs(ts3.NewArg("cluid", uniqueID)).WithResponse(&resp)
	if _, err := q.client.ExecCmd(cmd); err != nil {
		return 0, err
	}
	return resp.ClientDBID, nil
}

func (q *ts3Query) GroupAddClient(groupID, clientDBID int) error {
	return q.exec("servergroupaddclient", groupID, clientDBID)
}

func (q *ts3Query) GroupDelClient(groupID, clientDBID int) error {
	return q.exec("servergroupdelclient", groupID, clientDBID)
}

// exec runs a server group membership command. go-ts3 has no typed helper for
// these, so they go out as raw commands.
func (q *ts3Query) exec(name string, groupID, clientDBID int) error {
	cmd := ts3.NewCmd(name).WithArgs(ts3.NewArg("sgid", groupID), ts3.NewArg("cldbid", clientDBID))
	_, err := q.client.ExecCmd(cmd)
	return err
}

func (q *ts3Query) Close() error {
	return q.client.Close()
}
