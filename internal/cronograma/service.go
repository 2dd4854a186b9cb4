package cronograma

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"manutencao-predial/portal-backend/internal/apperr"
)

var validate = newValidator()

// newValidator reports json field names instead of Go field names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"startDate":    "data de início inválida, use AAAA-MM-DD",
	"endDate":      "data de término inválida, use AAAA-MM-DD",
	"activity":     "descrição da atividade é obrigatória (até 500 caracteres)",
	"status":       "status inválido: use pendente, em_andamento ou concluido",
	"observations": "observações devem ter até 2000 caracteres",
}

// Service implements the schedule use cases on top of a Store
type Service struct {
	store    Store
	renderer *Renderer
	logger   *zap.Logger
}

func NewService(store Store, renderer *Renderer, logger *zap.Logger) *Service {
	return &Service{store: store, renderer: renderer, logger: logger}
}

// List returns every item in print order
func (s *Service) List(ctx context.Context) ([]Item, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

// Create validates in, assigns an id and appends the item
func (s *Service) Create(ctx context.Context, in ItemInput) (*Item, error) {
	item, err := buildItem(in)
	if err != nil {
		return nil, err
	}
	item.ID = uuid.NewString()
	if err := s.store.Create(ctx, item); err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.Info("Schedule item created", zap.String("id", item.ID), zap.Int("order", item.Order))
	return item, nil
}

// Replace overwrites the editable fields of id
func (s *Service) Replace(ctx context.Context, id string, in ItemInput) (*Item, error) {
	item, err := buildItem(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, id, item); err != nil {
		return nil, storeError(err)
	}
	return item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	s.logger.Info("Schedule item deleted", zap.String("id", id))
	return nil
}

// Reorder applies the order given by ids, which must name every item once
func (s *Service) Reorder(ctx context.Context, ids []string) ([]Item, error) {
	items, err := s.store.Reorder(ctx, ids)
	if err != nil {
		return nil, storeError(err)
	}
	return items, nil
}

// Render prints items, or the stored schedule when items is nil. Posted
// items go through the same rules as Create and an empty schedule is
// rejected.
func (s *Service) Render(ctx context.Context, title string, items []Item) ([]byte, int, error) {
	if items == nil {
		stored, err := s.List(ctx)
		if err != nil {
			return nil, 0, err
		}
		items = stored
	} else {
		checked := make([]Item, len(items))
		for i, in := range items {
			item, err := buildItem(ItemInput{
				StartDate:    in.StartDate,
				EndDate:      in.EndDate,
				Activity:     in.Activity,
				Status:       in.Status,
				Observations: in.Observations,
			})
			if err != nil {
				return nil, 0, itemError(i, err)
			}
			item.ID = in.ID
			item.Order = in.Order
			if item.Order == 0 {
				item.Order = i + 1
			}
			checked[i] = *item
		}
		items = checked
	}
	if len(items) == 0 {
		return nil, 0, apperr.Validation("items", "o cronograma não possui atividades")
	}

	pdf, pages, err := s.renderer.Render(Document{Title: title, Items: items, GeneratedAt: time.Now()})
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return pdf, pages, nil
}

// itemError prefixes the field of a validation error with the item index
func itemError(i int, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind == apperr.KindValidation {
		return apperr.Validation(fmt.Sprintf("items[%d].%s", i, appErr.Field), appErr.Message)
	}
	return err
}

func buildItem(in ItemInput) (*Item, error) {
	in.Activity = strings.TrimSpace(in.Activity)
	in.StartDate = strings.TrimSpace(in.StartDate)
	in.EndDate = strings.TrimSpace(in.EndDate)

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			field := fieldErrs[0].Field()
			return nil, apperr.Validation(field, fieldMessages[field])
		}
		return nil, apperr.Validation("item", err.Error())
	}
	if in.StartDate != "" && in.EndDate != "" && in.EndDate < in.StartDate {
		return nil, apperr.Validation("endDate", "data de término anterior à data de início")
	}
	if in.Status == "" {
		in.Status = StatusPending
	}

	return &Item{
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Activity:     in.Activity,
		Status:       in.Status,
		Observations: strings.TrimSpace(in.Observations),
	}, nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("atividade não encontrada")
	case errors.Is(err, ErrInvalidOrder):
		return apperr.Validation("ids", "a nova ordem deve listar cada atividade exatamente uma vez")
	}
	return apperr.Internal(err)
}
