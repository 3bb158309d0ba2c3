package ports

// Company is the registry's view of an operating entity.
type Company struct {
	ID        string
	President string
	ParPrice  int64
	Shares    int
	Floated   bool
}

// CompanyRegistry resolves companies by id.
type CompanyRegistry interface {
	// AllCompanies lists every company in configuration order.
	AllCompanies() []Company

	// Company looks up one company.
	Company(id string) (Company, bool)

	// OperatingOrder lists the floated companies in the order they operate.
	OperatingOrder() []string
}
