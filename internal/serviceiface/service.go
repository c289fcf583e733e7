package serviceiface

// Service is one startable unit of the CustodiaLegal process: the gateway,
// the logger, a domain service or the cron runner. The app manager starts
// them in the order services.yaml lists them and stops them in reverse.
type Service interface {
	Name() string
	Start() error
	Stop() error
}
