package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordPortfolio(_ *PortfolioSnapshot) error     { return nil }
func (n *NoopRecorder) RecordCashFlow(_ *CashFlowSnapshot) error       { return nil }
func (n *NoopRecorder) RecordNotification(_ *NotificationEvent) error { return nil }
func (n *NoopRecorder) RecordCall(_ *CallEvent) error                 { return nil }
func (n *NoopRecorder) Close() error                                  { return nil }
