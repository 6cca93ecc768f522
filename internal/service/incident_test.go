package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/config"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/service/mocks"
	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/webhook"
	webhook_mocks "github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/webhook/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestIncidentService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (*incidentService, *mocks.MockIncidentRepository, *webhook_mocks.MockAlertPublisher, *mocks.MockEvidenceStorage) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockIncidentRepository(ctrl)
	publisherMock := webhook_mocks.NewMockAlertPublisher(ctrl)
	storageMock := mocks.NewMockEvidenceStorage(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		StationCode: "001",
	}

	responders := []models.Responder{
		{ID: "resp-001", Name: "Officer Raj Kumar", Latitude: 28.6139, Longitude: 77.2090},
		{ID: "resp-002", Name: "Officer Priya Singh", Latitude: 28.5355, Longitude: 77.3910},
	}

	service := NewIncidentService(repoMock, nil, storageMock, publisherMock, responders, logger, cfg)
	return service.(*incidentService), repoMock, publisherMock, storageMock
}

func TestCreateIncident_Success(t *testing.T) {
	// Подготовка
	service, repoMock, publisherMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	service.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	incident := &models.Incident{
		Type:        models.IncidentTypeAnomaly,
		Score:       0.75,
		RiskLevel:   models.RiskLevelYellow,
		TouristName: "Asha",
		TouristID:   "t-1",
		Location:    &models.Location{Latitude: 28.614, Longitude: 77.209},
		Factors:     []string{"High speed detected"},
	}

	// Ожидания
	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(1)
	repoMock.EXPECT().AssignResponder(ctx, gomock.Any(), gomock.Any()).Return(nil).Times(1)
	publisherMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	created := service.CreateIncident(ctx, incident)

	// Проверки
	require.NotNil(t, created)
	assert.Equal(t, "INC-20250310-1001", created.ID)
	assert.Equal(t, models.StatusOpen, created.Status)
	assert.Equal(t, models.PriorityHigh, created.Priority)

	// E-FIR генерируется всегда
	require.NotNil(t, created.EFIR)
	assert.Equal(t, "FIR-001-2025-0001", created.EFIR.FIRNumber)
	assert.Equal(t, "New Delhi Police Station", created.EFIR.Location.Jurisdiction)
	assert.Equal(t, "Suspicious Activity", created.EFIR.Category)
	assert.Equal(t, 0.75, created.EFIR.Evidence.AnomalyScore)

	// Назначен ближайший сотрудник
	require.NotNil(t, created.AssignedResponder)
	assert.Equal(t, "resp-001", created.AssignedResponder.ID)
}

func TestCreateIncident_IDCounterIsMonotonic(t *testing.T) {
	service, repoMock, publisherMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	service.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(2)
	publisherMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(2)

	first := service.CreateIncident(ctx, &models.Incident{Type: models.IncidentTypeSOS})
	second := service.CreateIncident(ctx, &models.Incident{Type: models.IncidentTypeSOS})

	assert.Equal(t, "INC-20250310-1001", first.ID)
	assert.Equal(t, "INC-20250310-1002", second.ID)
}

func TestCalculatePriority(t *testing.T) {
	testCases := []struct {
		name     string
		incident models.Incident
		expected models.Priority
	}{
		{"SOS всегда критичен", models.Incident{Type: models.IncidentTypeSOS, Score: 0.1}, models.PriorityCritical},
		{"оценка 0.9 критична", models.Incident{Type: models.IncidentTypeZoneBreach, Score: 0.95}, models.PriorityCritical},
		{"аномалия с 0.7 высокая", models.Incident{Type: models.IncidentTypeAnomaly, Score: 0.75}, models.PriorityHigh},
		{"красный уровень высокий", models.Incident{Type: models.IncidentTypeZoneBreach, Score: 0.2, RiskLevel: models.RiskLevelRed}, models.PriorityHigh},
		{"желтый уровень средний", models.Incident{Type: models.IncidentTypeZoneBreach, Score: 0.3, RiskLevel: models.RiskLevelYellow}, models.PriorityMedium},
		{"иначе низкий", models.Incident{Type: models.IncidentTypeRouteDeviation, Score: 0.1, RiskLevel: models.RiskLevelGreen}, models.PriorityLow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			incident := tc.incident
			assert.Equal(t, tc.expected, calculatePriority(&incident))
		})
	}
}

func TestCreateIncident_BuffersOnPersistenceFailure(t *testing.T) {
	// Подготовка: бд недоступна
	service, repoMock, publisherMock, _ := newTestIncidentService(t)
	ctx := context.Background()

	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("db down")).Times(1)
	publisherMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие: создание не возвращает ошибку
	created := service.CreateIncident(ctx, &models.Incident{Type: models.IncidentTypeSOS, TouristID: "t-9"})
	require.NotNil(t, created)

	// Проверки: инцидент доступен из локального буфера
	repoMock.EXPECT().GetIncidentFromCache(ctx, created.ID).Return(nil, nil).Times(1)
	repoMock.EXPECT().GetByID(ctx, created.ID).Return(nil, errors.New("db down")).Times(1)

	got, err := service.GetIncident(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestGetIncident_Success_FromCache(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	expectedIncident := &models.Incident{ID: "INC-20250310-1001"}

	// Ожидания
	repoMock.EXPECT().
		GetIncidentFromCache(ctx, expectedIncident.ID).
		Return(expectedIncident, nil).
		Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, expectedIncident.ID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestGetIncident_Success_FromDB(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	expectedIncident := &models.Incident{ID: "INC-20250310-1002"}

	// Ожидания
	// 1. Промах кеша
	repoMock.EXPECT().
		GetIncidentFromCache(ctx, expectedIncident.ID).
		Return(nil, nil).
		Times(1)

	// 2. Попадание в БД
	repoMock.EXPECT().
		GetByID(ctx, expectedIncident.ID).
		Return(expectedIncident, nil).
		Times(1)

	// 3. Запись в кеш
	repoMock.EXPECT().
		SetIncidentCache(ctx, expectedIncident).
		Return(nil).
		Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, expectedIncident.ID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expectedIncident, incident)
}

func TestGetIncident_NotFound(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := "INC-20250310-9999"
	dbError := errors.New("не найдено")

	// Ожидания
	repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(nil, nil).Times(1)
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(nil, dbError).Times(1)

	// Действие
	incident, err := service.GetIncident(ctx, incidentID)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorContains(t, err, "could not get incident")
}

func TestUpdateStatus_AllowedTransition(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := "INC-20250310-1001"
	existing := &models.Incident{ID: incidentID, Status: models.StatusOpen}

	// Ожидания
	repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().
		AppendUpdate(ctx, incidentID, models.StatusAssigned, gomock.Any()).
		Return(nil).
		Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	// Действие
	update, err := service.UpdateStatus(ctx, incidentID, models.StatusAssigned, "patrol dispatched")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, update.Status)
	assert.Equal(t, "patrol dispatched", update.Remarks)
	assert.Equal(t, "System", update.UpdatedBy)
}

func TestUpdateStatus_ReassignmentWhileAssigned(t *testing.T) {
	// Подготовка: инцидент уже назначен, передается другому сотруднику
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := "INC-20250310-1001"
	existing := &models.Incident{ID: incidentID, Status: models.StatusAssigned}

	// Ожидания
	repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().
		AppendUpdate(ctx, incidentID, models.StatusAssigned, gomock.Any()).
		Return(nil).
		Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	// Действие
	update, err := service.UpdateStatus(ctx, incidentID, models.StatusAssigned, "reassigned to resp-002")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, update.Status)
	assert.Equal(t, "reassigned to resp-002", update.Remarks)
}

func TestUpdateStatus_RejectedTransitions(t *testing.T) {
	testCases := []struct {
		name string
		from models.IncidentStatus
		to   models.IncidentStatus
	}{
		{"закрытый терминален", models.StatusClosed, models.StatusAssigned},
		{"нет возврата в Open", models.StatusResolved, models.StatusOpen},
		{"нет возврата из Assigned", models.StatusAssigned, models.StatusOpen},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			service, repoMock, _, _ := newTestIncidentService(t)
			ctx := context.Background()
			incidentID := "INC-20250310-1001"
			existing := &models.Incident{ID: incidentID, Status: tc.from}

			repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(existing, nil).Times(1)

			update, err := service.UpdateStatus(ctx, incidentID, tc.to, "")

			require.Error(t, err)
			assert.Nil(t, update)
			assert.ErrorContains(t, err, "not allowed")
		})
	}
}

func TestUpdateStatus_DirectClose(t *testing.T) {
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := "INC-20250310-1001"
	existing := &models.Incident{ID: incidentID, Status: models.StatusOpen}

	repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().AppendUpdate(ctx, incidentID, models.StatusClosed, gomock.Any()).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	update, err := service.UpdateStatus(ctx, incidentID, models.StatusClosed, "false alarm")

	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, update.Status)
}

func TestAddEvidence_WithUpload(t *testing.T) {
	// Подготовка
	service, repoMock, _, storageMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := "INC-20250310-1001"
	url := "https://blobs.example/evidence/1"

	// Ожидания
	storageMock.EXPECT().
		Upload(ctx, gomock.Any(), []byte("photo-bytes")).
		Return(url, nil).
		Times(1)
	repoMock.EXPECT().AppendEvidence(ctx, incidentID, gomock.Any()).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	// Действие
	evidence, err := service.AddEvidence(ctx, incidentID, EvidenceInput{
		Type: "photo",
		Data: []byte("photo-bytes"),
	})

	// Проверки
	require.NoError(t, err)
	require.NotNil(t, evidence.URL)
	assert.Equal(t, url, *evidence.URL)
	assert.Equal(t, "System", evidence.AddedBy)
}

func TestAddEvidence_UploadFailureKeepsRecord(t *testing.T) {
	// Подготовка: блоб-хранилище недоступно
	service, repoMock, _, storageMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := "INC-20250310-1001"

	storageMock.EXPECT().
		Upload(ctx, gomock.Any(), gomock.Any()).
		Return("", errors.New("storage down")).
		Times(1)
	repoMock.EXPECT().AppendEvidence(ctx, incidentID, gomock.Any()).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	// Действие
	evidence, err := service.AddEvidence(ctx, incidentID, EvidenceInput{
		Type:    "photo",
		AddedBy: "operator-7",
		Data:    []byte("photo-bytes"),
	})

	// Проверки: запись создана, ссылка отсутствует
	require.NoError(t, err)
	assert.Nil(t, evidence.URL)
	assert.Equal(t, "operator-7", evidence.AddedBy)
}

func TestListIncidents_NormalizesPagination(t *testing.T) {
	// Подготовка
	service, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	expected := []*models.Incident{{ID: "INC-20250310-1001"}}

	// Ожидания: отрицательная страница и завышенный размер нормализуются
	repoMock.EXPECT().ListIncidents(ctx, 1, 20).Return(expected, nil).Times(1)

	// Действие
	incidents, err := service.ListIncidents(ctx, -5, 500)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, incidents)
}

func TestNotifySeverityByPriority(t *testing.T) {
	// Подготовка: критический инцидент дает error-уведомление
	service, repoMock, publisherMock, _ := newTestIncidentService(t)
	ctx := context.Background()

	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(1)
	publisherMock.EXPECT().
		Publish(ctx, gomock.Any()).
		Do(func(_ context.Context, event webhook.AlertEvent) {
			assert.Equal(t, webhook.SeverityError, event.Severity)
		}).
		Return(nil).
		Times(1)

	service.CreateIncident(ctx, &models.Incident{Type: models.IncidentTypeSOS, TouristID: "t-1"})
}
