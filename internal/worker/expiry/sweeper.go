package expiry

import (
	"context"
	"errors"
	"time"

	"stockledger/internal/pkg/cache"
	"stockledger/internal/pkg/logger"
)

const lockKey = "reservation-sweep"

// Expirer expira reservas ativas vencidas em now.
type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// Sweeper executa ExpireDue periodicamente. Com locker, só a instância que obtém
// o lock varre em cada ciclo; a transição condicional do repositório segue
// impedindo dupla expiração mesmo sem ele.
type Sweeper struct {
	expirer  Expirer
	locker   cache.Locker
	interval time.Duration
	logger   logger.Logger
	now      func() time.Time
}

// NewSweeper cria o sweep. locker pode ser nil.
func NewSweeper(expirer Expirer, locker cache.Locker, interval time.Duration, log logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		expirer:  expirer,
		locker:   locker,
		interval: interval,
		logger:   log.With(map[string]interface{}{"worker": "reservation-expiry"}),
		now:      time.Now,
	}
}

// Run varre imediatamente e depois a cada intervalo, até ctx ser cancelado.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Sweep de expiração de reservas iniciado.", map[string]interface{}{"interval": s.interval.String()})
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Falha no sweep de expiração de reservas.", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Sweep de expiração de reservas encerrado.", nil)
			return
		case <-ticker.C:
		}
	}
}

// Sweep executa um ciclo e devolve quantas reservas foram expiradas.
// Quando outra instância detém o lock, o ciclo é pulado sem erro.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, lockKey, s.interval)
		if errors.Is(err, cache.ErrLockNotObtained) {
			s.logger.Debug("Outra instância está varrendo; ciclo pulado.", nil)
			return 0, nil
		}
		if err != nil {
			// Redis fora não pode parar a expiração.
			s.logger.Warn("Lock do sweep indisponível; varrendo sem lock.", map[string]interface{}{"error": err.Error()})
		} else {
			defer func() {
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					s.logger.Debug("Lock do sweep não liberado.", map[string]interface{}{"error": err.Error()})
				}
			}()
		}
	}

	return s.expirer.ExpireDue(ctx, s.now().UTC())
}
