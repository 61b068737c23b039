package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				workspace_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL,
				config JSONB DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_workspace_id ON workflows(workspace_id);
			CREATE INDEX idx_workflows_status ON workflows(status);

			CREATE TABLE workflow_nodes (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				graph_id VARCHAR(255) NOT NULL,
				node_type VARCHAR(50) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				execution_order INT NOT NULL DEFAULT 0,
				config JSONB DEFAULT '{}',
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_nodes_workflow_id ON workflow_nodes(workflow_id);
			CREATE UNIQUE INDEX idx_workflow_nodes_graph_id ON workflow_nodes(workflow_id, graph_id);

			CREATE TABLE workflow_edges (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				source_id VARCHAR(255) NOT NULL,
				target_id VARCHAR(255) NOT NULL,
				source_handle VARCHAR(50) NOT NULL DEFAULT '',
				enabled BOOLEAN NOT NULL DEFAULT true,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_edges_workflow_id ON workflow_edges(workflow_id);
			CREATE INDEX idx_workflow_edges_source ON workflow_edges(workflow_id, source_id);

			CREATE TABLE leads (
				id VARCHAR(255) PRIMARY KEY,
				workspace_id VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				company_name VARCHAR(255) NOT NULL DEFAULT '',
				budget BIGINT NOT NULL DEFAULT 0,
				status VARCHAR(50) NOT NULL,
				last_email_sent_at TIMESTAMP WITH TIME ZONE,
				replied_at TIMESTAMP WITH TIME ZONE,
				booking_confirmed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_leads_workspace_id ON leads(workspace_id);
			CREATE INDEX idx_leads_status ON leads(status);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id),
				lead_id VARCHAR(255) NOT NULL REFERENCES leads(id),
				status VARCHAR(50) NOT NULL,
				error_message TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_lead_id ON executions(lead_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_updated_at ON executions(updated_at);

			CREATE TABLE execution_steps (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				step_number INT NOT NULL,
				status VARCHAR(50) NOT NULL,
				error_message TEXT NOT NULL DEFAULT '',
				output JSONB DEFAULT '{}',
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				duration_ms BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_steps_execution_id ON execution_steps(execution_id);
			CREATE INDEX idx_execution_steps_node_id ON execution_steps(execution_id, node_id);
			CREATE UNIQUE INDEX idx_execution_steps_number ON execution_steps(execution_id, step_number);
		`,
	}
}
