package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=./mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"

	"nivaas/infras/otel"
	"nivaas/infras/postgres"
	"nivaas/internal/domains/booking/model"
	"nivaas/shared/constant"
	gDto "nivaas/shared/dto"
	"nivaas/shared/logger"
	gRepo "nivaas/shared/repository"
	"nivaas/shared/timezone"
)

type Booking interface {
	Insert(ctx context.Context, model model.Booking) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	Delete(ctx context.Context, filter gDto.FilterGroup) error
	UpdateStatusFrom(ctx context.Context, bookingID string, from, to model.BookingStatus, extra map[string]any) (bool, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// UpdateStatusFrom moves a booking between lifecycle statuses with a
// compare-and-set guard: the row is only written when it still carries the
// expected current status. It reports whether this caller won the transition,
// so concurrent writers observe exactly one winner per edge.
func (repo *repositoryImpl) UpdateStatusFrom(
	ctx context.Context,
	bookingID string,
	from, to model.BookingStatus,
	extra map[string]any,
) (bool, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.UpdateStatusFrom")
	defer scope.End()

	args := map[string]any{
		"booking_id":             bookingID,
		"current_status":         from,
		model.FieldBookingStatus: to,
		constant.FieldUpdatedAt:  timezone.Now(),
	}

	setClause := fmt.Sprintf("%s = :%s, %s = :%s", model.FieldBookingStatus, model.FieldBookingStatus, constant.FieldUpdatedAt, constant.FieldUpdatedAt)

	for col, value := range extra {
		setClause += fmt.Sprintf(", %s = :%s", col, col)
		args[col] = value
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = :booking_id AND %s = :current_status",
		model.TableName, setClause, model.FieldID, model.FieldBookingStatus,
	)

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := repo.db.Write.NamedExecContext(ctx, query, args)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return false, fmt.Errorf("failed to update booking status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}
