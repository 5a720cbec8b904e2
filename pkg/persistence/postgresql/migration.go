package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow definitions
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				owner_scope VARCHAR(255),
				type VARCHAR(20) NOT NULL CHECK (type IN ('SEQUENTIAL', 'PARALLEL', 'CONDITIONAL')),
				min_approvals INT,
				conditions JSONB,
				max_duration INT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_owner_scope ON workflows(owner_scope);

			CREATE TABLE workflow_steps (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				step_number INT NOT NULL,
				designation_id VARCHAR(255) NOT NULL,
				is_mandatory BOOLEAN NOT NULL DEFAULT false,
				approval_type VARCHAR(20) NOT NULL CHECK (approval_type IN ('SEQUENTIAL', 'PARALLEL')),
				min_approvals INT,
				deadline INT,
				reminder_interval INT,
				escalate_after INT,
				escalate_to_designation_id VARCHAR(255),
				UNIQUE (workflow_id, step_number)
			);

			-- Approval relevant projection of documents
			CREATE TABLE documents (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) REFERENCES workflows(id),
				status VARCHAR(20) NOT NULL CHECK (status IN ('DRAFT', 'PENDING', 'APPROVED', 'REJECTED')),
				created_by VARCHAR(255) NOT NULL,
				submitted_at TIMESTAMP WITH TIME ZONE,
				version INT NOT NULL DEFAULT 1,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_documents_status ON documents(status);

			CREATE TABLE document_approvals (
				id VARCHAR(255) PRIMARY KEY,
				document_id VARCHAR(255) NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
				workflow_step_id VARCHAR(255) NOT NULL REFERENCES workflow_steps(id),
				approver_id VARCHAR(255) NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
				comments TEXT,
				approved_at TIMESTAMP WITH TIME ZONE,
				deadline TIMESTAMP WITH TIME ZONE,
				reminders_sent INT NOT NULL DEFAULT 0,
				last_reminder_sent TIMESTAMP WITH TIME ZONE,
				is_escalated BOOLEAN NOT NULL DEFAULT false,
				escalated_at TIMESTAMP WITH TIME ZONE,
				escalated_to VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_document_approvals_unique ON document_approvals(document_id, workflow_step_id, approver_id);
			CREATE INDEX idx_document_approvals_status ON document_approvals(status);
			CREATE INDEX idx_document_approvals_deadline ON document_approvals(deadline);
			CREATE INDEX idx_document_approvals_approver ON document_approvals(document_id, approver_id);

			-- One row per completed (document, step); the primary key makes advancement idempotent
			CREATE TABLE approval_step_resolutions (
				document_id VARCHAR(255) NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
				workflow_step_id VARCHAR(255) NOT NULL REFERENCES workflow_steps(id),
				outcome VARCHAR(20) NOT NULL CHECK (outcome IN ('APPROVED', 'REJECTED')),
				resolved_by VARCHAR(255) NOT NULL,
				resolved_at TIMESTAMP WITH TIME ZONE NOT NULL,
				CONSTRAINT approval_step_resolutions_pkey PRIMARY KEY (document_id, workflow_step_id)
			);
		`,
		2: `
			-- Read model of the HR directory used to resolve designations to approvers
			CREATE TABLE directory_users (
				id VARCHAR(255) PRIMARY KEY,
				email VARCHAR(255),
				designation_id VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true
			);

			CREATE INDEX idx_directory_users_designation ON directory_users(designation_id) WHERE active;
		`,
	}
}
