package stream

import (
	"context"
	"encoding/json"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// TouristSource определяет контракт источника обновлений туристов.
// Subscribe регистрирует обработчик батчей и возвращает функцию остановки.
type TouristSource interface {
	Subscribe(ctx context.Context, handler func(batch []*models.Tourist)) (func(), error)
}

// RedisTouristSource - источник обновлений поверх Redis pub/sub: каждое
// сообщение канала содержит JSON-батч всех известных на момент тика туристов
type RedisTouristSource struct {
	client  *redis.Client
	channel string
	logger  *logrus.Logger
}

// NewRedisTouristSource создает источник обновлений
func NewRedisTouristSource(client *redis.Client, channel string, logger *logrus.Logger) *RedisTouristSource {
	return &RedisTouristSource{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Subscribe подписывается на канал обновлений. Батчи доставляются обработчику
// последовательно: следующий батч не принимается до завершения обработки текущего.
func (s *RedisTouristSource) Subscribe(ctx context.Context, handler func(batch []*models.Tourist)) (func(), error) {
	pubsub := s.client.Subscribe(ctx, s.channel)

	// Дожидаемся подтверждения подписки
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var batch []*models.Tourist
				if err := json.Unmarshal([]byte(msg.Payload), &batch); err != nil {
					s.logger.WithError(err).Error("Failed to unmarshal tourist batch")
					continue
				}
				handler(batch)
			}
		}
	}()

	return func() {
		if err := pubsub.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close tourist stream subscription")
		}
	}, nil
}
