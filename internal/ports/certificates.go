package ports

// CertificateStore records who holds each auctioned item.
type CertificateStore interface {
	// TransferCertificate hands item to holder, replacing any previous holder.
	TransferCertificate(item, holder string) error

	// Holder returns the current holder of item.
	Holder(item string) (string, bool)

	// Certificates lists the items a holder owns, sorted.
	Certificates(holder string) []string

	// Retire removes an item from play, e.g. after it was exchanged.
	Retire(item string) error
}
