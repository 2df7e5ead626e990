package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/domain/paymentterm"
	"github.com/facturio/facturio/pkg/utils"
)

// ClientInput carries the raw client fields supplied by the API layer. The
// payment term arrives as a string and is parsed into the closed
// enumeration here, at the system edge.
type ClientInput struct {
	Name        string
	Address     string
	PostalCode  string
	City        string
	Country     string
	VATNumber   string
	PaymentTerm string
	Contacts    []entity.Contact
}

// ClientService manages clients.
type ClientService interface {
	Create(ctx context.Context, userID int64, input ClientInput) (*entity.Client, error)
	Get(ctx context.Context, userID, id int64) (*entity.Client, error)
	List(ctx context.Context, userID int64) ([]*entity.Client, error)
	Update(ctx context.Context, userID, id int64, input ClientInput) (*entity.Client, error)
}

type clientServiceImpl struct {
	clientRepo port.ClientRepository
	logger     Logger
}

// NewClientService creates a new ClientService.
func NewClientService(clientRepo port.ClientRepository, logger Logger) ClientService {
	return &clientServiceImpl{
		clientRepo: clientRepo,
		logger:     logger,
	}
}

// Create validates and persists a new client.
func (s *clientServiceImpl) Create(ctx context.Context, userID int64, input ClientInput) (*entity.Client, error) {
	client := &entity.Client{UserID: userID}
	if err := applyInput(client, input); err != nil {
		return nil, err
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("Client created",
		"client_id", client.ID,
		"user_id", userID,
		"payment_term", client.PaymentTerm.String())

	return client, nil
}

// Get returns one client of the user.
func (s *clientServiceImpl) Get(ctx context.Context, userID, id int64) (*entity.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if client.UserID != userID {
		return nil, fmt.Errorf("client %d: %w", id, entity.ErrNotFound)
	}
	return client, nil
}

// List returns all clients of the user.
func (s *clientServiceImpl) List(ctx context.Context, userID int64) ([]*entity.Client, error) {
	return s.clientRepo.ListByUser(ctx, userID)
}

// Update revalidates and persists client fields. Invoices issued earlier
// keep their snapshot.
func (s *clientServiceImpl) Update(ctx context.Context, userID, id int64, input ClientInput) (*entity.Client, error) {
	client, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := applyInput(client, input); err != nil {
		return nil, err
	}
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// applyInput validates the raw input and writes it onto the client.
func applyInput(client *entity.Client, input ClientInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return entity.NewValidationError("name", "client name is required")
	}
	if len(input.Contacts) == 0 {
		return entity.NewValidationError("contacts", "at least one contact email is required")
	}

	term, err := paymentterm.Parse(input.PaymentTerm)
	if err != nil {
		return entity.NewValidationError("payment_term", err.Error())
	}

	if input.VATNumber != "" {
		if err := utils.ValidateVATNumber(input.VATNumber); err != nil {
			return entity.NewValidationError("vat_number", err.Error())
		}
	}

	contacts, err := normalizeContacts(input.Contacts)
	if err != nil {
		return err
	}

	client.Name = strings.TrimSpace(input.Name)
	client.Address = input.Address
	client.PostalCode = input.PostalCode
	client.City = input.City
	client.Country = input.Country
	client.VATNumber = input.VATNumber
	client.PaymentTerm = term
	client.Contacts = contacts
	return nil
}

// normalizeContacts enforces exactly one default contact: the first
// flagged one wins, and when none is flagged the first contact becomes the
// default.
func normalizeContacts(contacts []entity.Contact) ([]entity.Contact, error) {
	normalized := make([]entity.Contact, len(contacts))
	copy(normalized, contacts)

	defaultIdx := -1
	for i := range normalized {
		if err := utils.ValidateEmail(normalized[i].Email); err != nil {
			return nil, entity.NewValidationError("contacts", err.Error())
		}
		if normalized[i].IsDefault && defaultIdx < 0 {
			defaultIdx = i
		}
		normalized[i].IsDefault = false
	}
	if defaultIdx < 0 {
		defaultIdx = 0
	}
	normalized[defaultIdx].IsDefault = true
	return normalized, nil
}
