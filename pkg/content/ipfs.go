package content

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/wavechat/pkg/ipfs"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

// IPFSStore keeps payloads in IPFS through the cluster API. The ref is the CID.
type IPFSStore struct {
	client      *ipfs.Client
	replication int
	maxSize     int64
	logger      *logging.ColoredLogger
}

// IPFSOptions configures an IPFSStore.
type IPFSOptions struct {
	// ReplicationFactor > 0 pins every upload with that replication.
	ReplicationFactor int
	// MaxSize caps reads. Zero means DefaultMaxSize.
	MaxSize int64
	Logger  *logging.ColoredLogger
}

// NewIPFSStore wraps client.
func NewIPFSStore(client *ipfs.Client, opts IPFSOptions) *IPFSStore {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &IPFSStore{
		client:      client,
		replication: opts.ReplicationFactor,
		maxSize:     opts.MaxSize,
		logger:      opts.Logger,
	}
}

func (s *IPFSStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	if name == "" {
		name = "payload"
	}
	added, err := s.client.Add(ctx, data, name)
	if err != nil {
		return "", fmt.Errorf("failed to upload content: %w", err)
	}

	if s.replication > 0 {
		if _, err := s.client.Pin(ctx, added.Cid, name, s.replication); err != nil {
			return "", fmt.Errorf("failed to pin content %s: %w", added.Cid, err)
		}
	}

	s.logger.ComponentDebug(logging.ComponentContent, "Stored content",
		zap.String("cid", added.Cid), zap.Int64("size", added.Size))
	return added.Cid, nil
}

func (s *IPFSStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, ref, s.maxSize)
	if err != nil {
		if errors.Is(err, ipfs.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch content %s: %w", ref, err)
	}
	return data, nil
}

func (s *IPFSStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}
