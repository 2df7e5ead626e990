package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/facturio/facturio/internal/application/port"
	"github.com/facturio/facturio/internal/domain/entity"
	"github.com/facturio/facturio/internal/domain/paymentterm"
	"github.com/facturio/facturio/internal/infrastructure/persistence/sqlite"
)

// ClientRepository implements port.ClientRepository
type ClientRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *sqlite.DB, logger *zap.Logger) port.ClientRepository {
	return &ClientRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a client and its contacts in one transaction.
func (r *ClientRepository) Create(ctx context.Context, client *entity.Client) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			INSERT INTO clients (
				user_id, name, address, postal_code, city, country,
				vat_number, payment_term
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`

		result, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			client.UserID,
			client.Name,
			client.Address,
			client.PostalCode,
			client.City,
			client.Country,
			client.VATNumber,
			client.PaymentTerm.String(),
		)
		if err != nil {
			r.logger.Error("Failed to create client", zap.Error(err))
			return fmt.Errorf("failed to create client: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		client.ID = id

		return r.replaceContacts(txCtx, client)
	})
}

// GetByID retrieves a client with its contacts
func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*entity.Client, error) {
	query := `
		SELECT id, user_id, name, address, postal_code, city, country,
			vat_number, payment_term, created_at, updated_at
		FROM clients
		WHERE id = ?
	`

	var client entity.Client
	var term string

	err := r.db.Executor(ctx).QueryRowContext(ctx, query, id).Scan(
		&client.ID,
		&client.UserID,
		&client.Name,
		&client.Address,
		&client.PostalCode,
		&client.City,
		&client.Country,
		&client.VATNumber,
		&term,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("client %d: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get client by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	client.PaymentTerm = paymentterm.Term(term)

	contacts, err := r.loadContacts(ctx, client.ID)
	if err != nil {
		return nil, err
	}
	client.Contacts = contacts

	return &client, nil
}

// ListByUser retrieves all clients of a user, alphabetically.
func (r *ClientRepository) ListByUser(ctx context.Context, userID int64) ([]*entity.Client, error) {
	query := `
		SELECT id, user_id, name, address, postal_code, city, country,
			vat_number, payment_term, created_at, updated_at
		FROM clients
		WHERE user_id = ?
		ORDER BY name COLLATE NOCASE
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list clients", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*entity.Client
	for rows.Next() {
		var client entity.Client
		var term string

		err := rows.Scan(
			&client.ID,
			&client.UserID,
			&client.Name,
			&client.Address,
			&client.PostalCode,
			&client.City,
			&client.Country,
			&client.VATNumber,
			&term,
			&client.CreatedAt,
			&client.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		client.PaymentTerm = paymentterm.Term(term)
		clients = append(clients, &client)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, client := range clients {
		contacts, err := r.loadContacts(ctx, client.ID)
		if err != nil {
			return nil, err
		}
		client.Contacts = contacts
	}

	return clients, nil
}

// Update rewrites client fields and replaces the contact list.
func (r *ClientRepository) Update(ctx context.Context, client *entity.Client) error {
	return r.db.WithTransaction(ctx, func(txCtx context.Context) error {
		query := `
			UPDATE clients
			SET name = ?, address = ?, postal_code = ?, city = ?, country = ?,
				vat_number = ?, payment_term = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`

		result, err := r.db.Executor(txCtx).ExecContext(txCtx, query,
			client.Name,
			client.Address,
			client.PostalCode,
			client.City,
			client.Country,
			client.VATNumber,
			client.PaymentTerm.String(),
			client.ID,
		)
		if err != nil {
			r.logger.Error("Failed to update client", zap.Int64("id", client.ID), zap.Error(err))
			return fmt.Errorf("failed to update client: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("client %d: %w", client.ID, entity.ErrNotFound)
		}

		if _, err := r.db.Executor(txCtx).ExecContext(txCtx,
			`DELETE FROM contacts WHERE client_id = ?`, client.ID); err != nil {
			return fmt.Errorf("failed to clear contacts: %w", err)
		}
		return r.replaceContacts(txCtx, client)
	})
}

func (r *ClientRepository) replaceContacts(ctx context.Context, client *entity.Client) error {
	query := `INSERT INTO contacts (client_id, email, is_default) VALUES (?, ?, ?)`

	for i := range client.Contacts {
		result, err := r.db.Executor(ctx).ExecContext(ctx, query,
			client.ID,
			client.Contacts[i].Email,
			client.Contacts[i].IsDefault,
		)
		if err != nil {
			return fmt.Errorf("failed to create contact: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		client.Contacts[i].ID = id
		client.Contacts[i].ClientID = client.ID
	}
	return nil
}

func (r *ClientRepository) loadContacts(ctx context.Context, clientID int64) ([]entity.Contact, error) {
	query := `
		SELECT id, client_id, email, is_default
		FROM contacts
		WHERE client_id = ?
		ORDER BY id
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	defer rows.Close()

	var contacts []entity.Contact
	for rows.Next() {
		var c entity.Contact
		if err := rows.Scan(&c.ID, &c.ClientID, &c.Email, &c.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Verify interface compliance
var _ port.ClientRepository = (*ClientRepository)(nil)
