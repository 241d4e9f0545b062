package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'charge_status') THEN
			CREATE TYPE charge_status AS ENUM ('PENDING_PAYMENT', 'PENDING_APPROVAL', 'PAID', 'REJECTED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'charge_item_type') THEN
			CREATE TYPE charge_item_type AS ENUM ('MISSING', 'DAMAGED', 'REPAIR', 'CLEANING');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'closure_status') THEN
			CREATE TYPE closure_status AS ENUM ('PENDING', 'APPROVED');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS additional_charge (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		invoice_no VARCHAR(64) NOT NULL,
		do_number VARCHAR(64) NOT NULL,
		customer_name VARCHAR(255) NOT NULL,
		total_charges NUMERIC(18,2) NOT NULL,
		status charge_status NOT NULL DEFAULT 'PENDING_PAYMENT',
		due_date DATE NOT NULL,
		returned_date DATE,
		proof_of_payment_url TEXT,
		reference_id VARCHAR(128),
		rejection_reason TEXT,
		approval_date TIMESTAMPTZ,
		rejection_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_additional_charge_invoice_no ON additional_charge (invoice_no);`,
	`CREATE INDEX IF NOT EXISTS idx_additional_charge_status ON additional_charge (status);`,
	`CREATE INDEX IF NOT EXISTS idx_additional_charge_due_date ON additional_charge (due_date);`,
	`CREATE TABLE IF NOT EXISTS additional_charge_item (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		charge_id UUID NOT NULL REFERENCES additional_charge(id) ON DELETE CASCADE,
		position INT NOT NULL,
		item_name VARCHAR(255) NOT NULL,
		item_type charge_item_type NOT NULL,
		quantity INT NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(18,2) NOT NULL CHECK (unit_price >= 0),
		amount NUMERIC(18,2) NOT NULL,
		repair_description TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_additional_charge_item_charge_id ON additional_charge_item (charge_id);`,
	`CREATE TABLE IF NOT EXISTS credit_note (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		charge_id UUID NOT NULL REFERENCES additional_charge(id),
		note_number VARCHAR(64) NOT NULL,
		amount NUMERIC(18,2) NOT NULL CHECK (amount >= 0),
		issued_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_credit_note_charge_id ON credit_note (charge_id);`,
	`CREATE SEQUENCE IF NOT EXISTS closure_request_seq;`,
	`CREATE TABLE IF NOT EXISTS project_closure_request (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		agreement_id UUID NOT NULL REFERENCES rental_agreements(id),
		request_number VARCHAR(32) NOT NULL,
		request_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		status closure_status NOT NULL DEFAULT 'PENDING',
		approved_by UUID REFERENCES users(id),
		approved_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_closure_agreement_id ON project_closure_request (agreement_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_closure_request_number ON project_closure_request (request_number);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
