package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automations (
				id UUID PRIMARY KEY,
				project_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT true,
				trigger JSONB NOT NULL,
				conditions JSONB NOT NULL DEFAULT '{}',
				action JSONB NOT NULL,
				cooldown_sec INT NOT NULL DEFAULT 0,
				run_access VARCHAR(50) NOT NULL DEFAULT 'member_runnable',
				tags JSONB,
				last_run_at TIMESTAMP WITH TIME ZONE,
				last_status VARCHAR(50),
				last_error TEXT,
				next_run_at TIMESTAMP WITH TIME ZONE,
				run_count INT NOT NULL DEFAULT 0,
				created_by VARCHAR(255),
				updated_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automations_project_id ON automations(project_id);
			CREATE INDEX idx_automations_enabled ON automations(enabled);
			CREATE INDEX idx_automations_next_run_at ON automations(next_run_at);

			CREATE TABLE automation_runs (
				id UUID PRIMARY KEY,
				automation_id UUID NOT NULL,
				project_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				triggered_by VARCHAR(50) NOT NULL,
				actor VARCHAR(255),
				event_type VARCHAR(255),
				event_payload JSONB,
				result JSONB,
				diagnostics JSONB,
				error TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE NOT NULL,
				duration_ms BIGINT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_automation_runs_automation_id ON automation_runs(automation_id);
			CREATE INDEX idx_automation_runs_started_at ON automation_runs(started_at);

			CREATE TABLE presets (
				id UUID PRIMARY KEY,
				project_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger JSONB NOT NULL,
				conditions JSONB NOT NULL DEFAULT '{}',
				action JSONB NOT NULL,
				cooldown_sec INT NOT NULL DEFAULT 0,
				run_access VARCHAR(50) NOT NULL DEFAULT 'member_runnable',
				tags JSONB,
				created_by VARCHAR(255),
				updated_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_presets_project_id ON presets(project_id);

			CREATE TABLE preset_versions (
				id UUID PRIMARY KEY,
				preset_id UUID NOT NULL,
				ordinal INT NOT NULL,
				snapshot JSONB NOT NULL,
				change_type VARCHAR(50) NOT NULL,
				note TEXT,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (preset_id, ordinal)
			);

			CREATE INDEX idx_preset_versions_preset_id ON preset_versions(preset_id);
		`,
	}
}
