package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/leakdesk/internal/index"
	"github.com/MrSnakeDoc/leakdesk/internal/logger"
	"github.com/MrSnakeDoc/leakdesk/internal/sources/users"
)

// UsersReloader keeps the dashboard accounts in sync with users.yaml
type UsersReloader struct {
	loader        *users.Loader
	mapper        *users.Mapper
	index         *index.MemoryIndex
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	done          chan struct{} // closed once the loop has returned
	manualTrigger chan struct{}
}

// NewUsersReloader creates a new users reloader
func NewUsersReloader(
	usersFile string,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *UsersReloader {
	return &UsersReloader{
		loader:        users.NewLoader(usersFile),
		mapper:        users.NewMapper(),
		index:         idx,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads users once, then reloads on every tick or manual trigger.
// A failed initial load is fatal since nobody could log in.
func (ur *UsersReloader) Start(ctx context.Context) error {
	if err := ur.Reload(ctx); err != nil {
		return fmt.Errorf("initial users reload failed: %w", err)
	}

	ticker := time.NewTicker(ur.interval)
	ur.done = make(chan struct{})
	go func() {
		defer close(ur.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ur.Reload(ctx); err != nil {
					ur.logger.Error("failed to reload users",
						logger.Error(err))
				}
			case <-ur.manualTrigger:
				ur.logger.Info("manual users reload triggered")
				if err := ur.Reload(ctx); err != nil {
					ur.logger.Error("failed to reload users",
						logger.Error(err))
				}
			case <-ur.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader and waits for the loop to return
func (ur *UsersReloader) Stop() {
	close(ur.stopCh)
	if ur.done != nil {
		<-ur.done
	}
}

// Reload replaces the in-memory accounts. On error the previous set stays.
func (ur *UsersReloader) Reload(_ context.Context) error {
	ur.logger.Info("reloading users", logger.String("file", ur.loader.Path()))

	file, err := ur.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	accounts, err := ur.mapper.MapUsers(file)
	if err != nil {
		return fmt.Errorf("failed to map users: %w", err)
	}

	ur.index.UpdateUsers(accounts)

	admins := 0
	for _, u := range accounts {
		if u.IsAdmin() {
			admins++
		}
	}
	ur.logger.Info("users reloaded",
		logger.Int("count", len(accounts)),
		logger.Int("admins", admins))

	return nil
}
