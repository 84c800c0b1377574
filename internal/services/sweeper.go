package services

import (
	"context"
	"time"

	"watchparty/internal/repository"
	"watchparty/pkg/logger"
)

// IdleSweeper closes rooms with no chat activity for longer than the idle
// timeout. It runs as a single in-process loop; room state has one
// authority per process so no coordination is needed.
type IdleSweeper struct {
	roomRepo repository.RoomRepository
	rooms    *RoomService
	idle     time.Duration
	interval time.Duration
	log      *logger.Logger
}

func NewIdleSweeper(roomRepo repository.RoomRepository, rooms *RoomService, idle, interval time.Duration, l *logger.Logger) *IdleSweeper {
	return &IdleSweeper{
		roomRepo: roomRepo,
		rooms:    rooms,
		idle:     idle,
		interval: interval,
		log:      l,
	}
}

func (s *IdleSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *IdleSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.idle)
	idle, err := s.roomRepo.ListIdle(ctx, cutoff)
	if err != nil {
		if s.log != nil {
			s.log.Errorf("idle sweep failed: %v", err)
		}
		return
	}

	for _, rm := range idle {
		if err := s.rooms.CloseIdle(ctx, rm); err != nil {
			if s.log != nil {
				s.log.Errorf("idle close of room %s failed: %v", rm.ID, err)
			}
			continue
		}
		if s.log != nil {
			s.log.Infof("closed idle room %s", rm.ID)
		}
	}
}
