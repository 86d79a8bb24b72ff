package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the CREATE statements in dependency order.  Every statement
// is idempotent so Migrate can run on each start.
var schema = []struct {
	name string
	stmt string
}{
	{"users", `CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		name VARCHAR(120) NOT NULL DEFAULT '',
		phone VARCHAR(32) NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'customer',
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		points BIGINT NOT NULL DEFAULT 0,
		highest_points BIGINT NOT NULL DEFAULT 0,
		loyalty_tier VARCHAR(8) NOT NULL DEFAULT 'Bronze',
		avatar_path VARCHAR(255) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email),
		KEY idx_users_role (role),
		KEY idx_users_points (points)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"refresh_tokens", `CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"rewards", `CREATE TABLE IF NOT EXISTS rewards (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(160) NOT NULL,
		description TEXT NULL,
		points_cost BIGINT NOT NULL,
		expiry_days INT NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		minimum_required_tier VARCHAR(8) NOT NULL DEFAULT 'Bronze',
		image_path VARCHAR(255) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"transactions", `CREATE TABLE IF NOT EXISTS transactions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		type VARCHAR(20) NOT NULL,
		amount DECIMAL(15,2) NULL,
		points_earned BIGINT NOT NULL DEFAULT 0,
		points_spent BIGINT NOT NULL DEFAULT 0,
		description VARCHAR(255) NOT NULL DEFAULT '',
		created_by BIGINT UNSIGNED NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_tx_user_created (user_id, created_at),
		KEY idx_tx_type_created (type, created_at),
		CONSTRAINT fk_tx_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"redeem_requests", `CREATE TABLE IF NOT EXISTS redeem_requests (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT UNSIGNED NOT NULL,
		reward_id BIGINT UNSIGNED NOT NULL,
		status VARCHAR(10) NOT NULL DEFAULT 'pending',
		points_used BIGINT NOT NULL,
		voucher_code CHAR(36) NULL,
		note VARCHAR(255) NULL,
		requested_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME NULL,
		processed_by BIGINT UNSIGNED NULL,
		expires_at DATETIME NULL,
		used_at DATETIME NULL,
		UNIQUE KEY uq_redeem_voucher (voucher_code),
		KEY idx_redeem_status (status, requested_at),
		KEY idx_redeem_user (user_id, requested_at),
		CONSTRAINT fk_redeem_user FOREIGN KEY (user_id) REFERENCES users(id),
		CONSTRAINT fk_redeem_reward FOREIGN KEY (reward_id) REFERENCES rewards(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"support_tickets", `CREATE TABLE IF NOT EXISTS support_tickets (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		reference VARCHAR(32) NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		subject VARCHAR(200) NOT NULL,
		message TEXT NOT NULL,
		priority VARCHAR(8) NOT NULL DEFAULT 'normal',
		status VARCHAR(12) NOT NULL DEFAULT 'open',
		assigned_to BIGINT UNSIGNED NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_ticket_ref (reference),
		KEY idx_ticket_status (status, created_at),
		CONSTRAINT fk_ticket_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"ticket_replies", `CREATE TABLE IF NOT EXISTS ticket_replies (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		ticket_id BIGINT UNSIGNED NOT NULL,
		author_id BIGINT UNSIGNED NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_reply_ticket (ticket_id, created_at),
		CONSTRAINT fk_reply_ticket FOREIGN KEY (ticket_id) REFERENCES support_tickets(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"activity_logs", `CREATE TABLE IF NOT EXISTS activity_logs (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		actor_id BIGINT UNSIGNED NULL,
		action VARCHAR(64) NOT NULL,
		entity VARCHAR(32) NOT NULL,
		entity_id BIGINT UNSIGNED NULL,
		details VARCHAR(500) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_activity_created (created_at),
		KEY idx_activity_actor (actor_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

// Migrate creates any missing table.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, s := range schema {
		if _, err := db.ExecContext(ctx, s.stmt); err != nil {
			return fmt.Errorf("create %s table: %w", s.name, err)
		}
	}
	return nil
}
