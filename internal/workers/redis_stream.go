package workers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"monad-deathmatch-backend/internal/common/logger"
)

const (
	StreamKey     = "arena:events"
	ConsumerGroup = "deathmatch_backend_consumers"

	EventParticipantJoined = "participant_joined"

	batchSize = 50
)

var errNotRecorded = errors.New("participants not recorded")

// ParticipantRecorder persists mirrored joins.
type ParticipantRecorder interface {
	RecordParticipants(ctx context.Context, wallets []string) error
}

// ParticipantStream carries participant joins seen by the poller to the
// off-chain participants table. Entries stay pending until recorded and are
// reclaimed periodically, so a failed write is retried while the worker runs.
type ParticipantStream struct {
	rdb        redis.Cmdable
	recorder   ParticipantRecorder
	poolID     int64
	consumer   string
	block      time.Duration
	retryEvery time.Duration
	log        zerolog.Logger
}

func NewParticipantStream(rdb redis.Cmdable, recorder ParticipantRecorder, poolID int64, consumer string) *ParticipantStream {
	if consumer == "" {
		consumer = "deathmatch_worker_1"
	}
	return &ParticipantStream{
		rdb:        rdb,
		recorder:   recorder,
		poolID:     poolID,
		consumer:   consumer,
		block:      5 * time.Second,
		retryEvery: 30 * time.Second,
		log:        logger.Component("participant-stream"),
	}
}

// Publish appends one event per joined wallet.
func (w *ParticipantStream) Publish(ctx context.Context, joined []string) error {
	if len(joined) == 0 {
		return nil
	}
	_, err := w.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, wallet := range joined {
			p.XAdd(ctx, &redis.XAddArgs{
				Stream: StreamKey,
				MaxLen: 10000,
				Approx: true,
				Values: map[string]interface{}{
					"type":    EventParticipantJoined,
					"wallet":  strings.ToLower(wallet),
					"pool_id": strconv.FormatInt(w.poolID, 10),
				},
			})
		}
		return nil
	})
	return err
}

func (w *ParticipantStream) ensureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Start consumes the stream until ctx is done.
func (w *ParticipantStream) Start(ctx context.Context) {
	if err := w.ensureGroup(ctx); err != nil {
		w.log.Error().Err(err).Msg("Error creating consumer group")
	}

	w.log.Info().Str("stream", StreamKey).Dur("retry_every", w.retryEvery).Msg("Starting participant stream worker")

	retry := time.NewTicker(w.retryEvery)
	defer retry.Stop()

	// whatever a previous run left unacknowledged; recording is idempotent
	w.reclaim(ctx, 0)

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping participant stream worker")
			return
		case <-retry.C:
			w.reclaim(ctx, w.retryEvery)
		default:
		}

		_, err := w.readNew(ctx)
		if err == nil || errors.Is(err, errNotRecorded) || ctx.Err() != nil {
			continue
		}
		w.log.Warn().Err(err).Msg("Error reading from stream")
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

// reclaim takes over entries idle for at least minIdle, from any consumer,
// and records them again.
func (w *ParticipantStream) reclaim(ctx context.Context, minIdle time.Duration) {
	start := "0-0"
	for {
		msgs, next, err := w.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   StreamKey,
			Group:    ConsumerGroup,
			Consumer: w.consumer,
			MinIdle:  minIdle,
			Start:    start,
			Count:    batchSize,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				w.log.Warn().Err(err).Msg("Failed to reclaim pending entries")
			}
			return
		}
		if len(msgs) == 0 {
			return
		}
		if _, err := w.process(ctx, msgs); err != nil {
			return
		}
		if next == "" || next == "0-0" {
			return
		}
		start = next
	}
}

func (w *ParticipantStream) readNew(ctx context.Context) (int, error) {
	entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumer,
		Streams:  []string{StreamKey, ">"},
		Count:    batchSize,
		Block:    w.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	var msgs []redis.XMessage
	for _, stream := range entries {
		msgs = append(msgs, stream.Messages...)
	}
	return w.process(ctx, msgs)
}

// process records the batch and acks it. Entries stay pending when the
// recorder fails.
func (w *ParticipantStream) process(ctx context.Context, msgs []redis.XMessage) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(msgs))
	var wallets []string
	for _, msg := range msgs {
		ids = append(ids, msg.ID)
		if wallet, ok := w.parse(msg.Values); ok {
			wallets = append(wallets, wallet)
		}
	}

	if len(wallets) > 0 {
		if err := w.recorder.RecordParticipants(ctx, wallets); err != nil {
			w.log.Error().Err(err).Int("count", len(wallets)).Msg("Failed to record participants, leaving entries pending")
			return 0, errNotRecorded
		}
	}

	if err := w.rdb.XAck(ctx, StreamKey, ConsumerGroup, ids...).Err(); err != nil {
		return 0, err
	}
	w.log.Debug().Int("entries", len(ids)).Int("participants", len(wallets)).Msg("Stream batch processed")
	return len(wallets), nil
}

func (w *ParticipantStream) parse(values map[string]interface{}) (string, bool) {
	eventType, _ := values["type"].(string)
	if eventType != EventParticipantJoined {
		return "", false
	}

	wallet, ok := values["wallet"].(string)
	if !ok || wallet == "" {
		w.log.Warn().Interface("values", values).Msg("Invalid wallet in participant_joined event")
		return "", false
	}

	if raw, ok := values["pool_id"].(string); ok {
		poolID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || poolID != w.poolID {
			w.log.Debug().Str("pool_id", raw).Msg("Skipping event for another pool")
			return "", false
		}
	}
	return wallet, true
}
