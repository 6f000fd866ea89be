package domain

// RegisteredDatabase is a data source registered with the backend.
type RegisteredDatabase struct {
	DatabaseSID string  `json:"database_sid"`
	SchemaName  string  `json:"schema_name"`
	Host        string  `json:"host,omitempty"`
	Port        int     `json:"port,omitempty"`
	ServiceName string  `json:"service_name,omitempty"`
	User        string  `json:"user,omitempty"`
	IsConnected bool    `json:"is_connected"`
	TableCount  int     `json:"table_count"`
	LastUpdated *string `json:"last_updated,omitempty"`
}

// Target returns the run target addressed by this database.
func (d RegisteredDatabase) Target() TargetRef {
	return TargetRef{SourceID: d.DatabaseSID, Namespace: d.SchemaName}
}
