package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	redisKeyPrefix   = "tracker:doc:"
	redisMaxAttempts = 32
)

// ErrConflict is returned when an update keeps losing optimistic races.
var ErrConflict = errors.New("document update conflicted too many times")

// RedisConfig holds configuration for the Redis document store.
type RedisConfig struct {
	// Addr is a redis:// URL or a host:port.
	Addr string
	// APIKey authenticates to the server (optional).
	APIKey string
	Logger zerolog.Logger
}

// NewRedisClient connects to the collaboration server and verifies it is
// reachable.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	var opts *redis.Options
	if strings.Contains(cfg.Addr, "://") {
		parsed, err := redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.Addr}
	}
	if cfg.APIKey != "" {
		opts.Password = cfg.APIKey
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// RedisOpener shares documents through Redis. Each document is one JSON
// value; updates use WATCH/MULTI so concurrent writers retry instead of
// overwriting each other, and a pub/sub channel announces every change.
type RedisOpener struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisOpener creates an opener over an existing client.
func NewRedisOpener(client *redis.Client, logger zerolog.Logger) *RedisOpener {
	return &RedisOpener{client: client, logger: logger}
}

func redisKey(issueID string) string     { return redisKeyPrefix + issueID }
func redisChannel(issueID string) string { return redisKeyPrefix + issueID + ":changed" }

// Open loads the document and starts listening for remote changes.
func (o *RedisOpener) Open(ctx context.Context, issueID string) (Document, error) {
	if issueID == "" {
		return nil, errors.New("issue id is required")
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	doc := &RedisDocument{
		issueID: issueID,
		client:  o.client,
		logger:  o.logger.With().Str("issue_id", issueID).Logger(),
		cancel:  cancel,
		state:   State{Loading: true},
		done:    make(chan struct{}),
	}

	pubsub := o.client.Subscribe(ctx, redisChannel(issueID))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to document: %w", err)
	}

	doc.reload(ctx)
	go doc.listen(listenCtx, pubsub)
	return doc, nil
}

// RedisDocument is a Document stored in Redis.
type RedisDocument struct {
	issueID string
	client  *redis.Client
	logger  zerolog.Logger
	cancel  context.CancelFunc
	done    chan struct{}
	notifier

	mu     sync.RWMutex
	root   Root
	state  State
	closed bool
}

// IssueID returns the issue id.
func (d *RedisDocument) IssueID() string { return d.issueID }

// Root returns the last known content.
func (d *RedisDocument) Root() Root {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root.Clone()
}

// State reports loading and connection errors.
func (d *RedisDocument) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Subscribe registers for change signals.
func (d *RedisDocument) Subscribe() (<-chan struct{}, func()) { return d.subscribe() }

// Update applies fn in an optimistic transaction, retrying when another
// writer changed the document first.
func (d *RedisDocument) Update(ctx context.Context, fn func(*Root) error) error {
	d.mu.RLock()
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	key := redisKey(d.issueID)
	var applied Root

	txf := func(tx *redis.Tx) error {
		current, err := getRoot(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(&current); err != nil {
			return err
		}
		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Publish(ctx, redisChannel(d.issueID), "update")
			return nil
		})
		if err == nil {
			applied = current
		}
		return err
	}

	for attempt := 0; attempt < redisMaxAttempts; attempt++ {
		err := d.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			d.logger.Debug().Int("attempt", attempt+1).Msg("document update conflicted, retrying")
			continue
		}
		if err != nil {
			return err
		}

		d.mu.Lock()
		d.root = applied
		d.state = State{}
		d.mu.Unlock()
		d.notify()
		return nil
	}
	return ErrConflict
}

// Close stops listening for remote changes.
func (d *RedisDocument) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	<-d.done
	return nil
}

func (d *RedisDocument) listen(ctx context.Context, pubsub *redis.PubSub) {
	defer close(d.done)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			d.reload(ctx)
		}
	}
}

func (d *RedisDocument) reload(ctx context.Context) {
	root, err := getRoot(ctx, d.client, redisKey(d.issueID))

	d.mu.Lock()
	if err != nil {
		d.state = State{Err: err}
		d.mu.Unlock()
		d.logger.Warn().Err(err).Msg("failed to load document")
		d.notify()
		return
	}
	changed := !rootsEqual(d.root, root) || d.state.Loading || d.state.Err != nil
	d.root = root
	d.state = State{}
	d.mu.Unlock()

	if changed {
		d.notify()
	}
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRoot(ctx context.Context, g getter, key string) (Root, error) {
	data, err := g.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Root{}, nil
	}
	if err != nil {
		return Root{}, fmt.Errorf("load document: %w", err)
	}
	var root Root
	if err := json.Unmarshal(data, &root); err != nil {
		return Root{}, fmt.Errorf("parse document: %w", err)
	}
	return root, nil
}

func rootsEqual(a, b Root) bool {
	if a.Status != b.Status || len(a.Events) != len(b.Events) {
		return false
	}
	for i := range a.Events {
		if a.Events[i].ID != b.Events[i].ID ||
			a.Events[i].Text != b.Events[i].Text ||
			a.Events[i].Author != b.Events[i].Author ||
			!a.Events[i].CreatedAt.Equal(b.Events[i].CreatedAt) {
			return false
		}
	}
	return true
}
