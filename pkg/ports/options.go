package ports

import "context"

// OptionSource yields the option labels offered for a guided question.
type OptionSource interface {
	// Options returns the labels. Remote sources honour ctx cancellation.
	Options(ctx context.Context) ([]string, error)

	// Static reports whether Options is answered from memory without blocking.
	Static() bool
}

// CategoryFetcher retrieves the vendor categories from the marketplace.
type CategoryFetcher interface {
	Categories(ctx context.Context) ([]string, error)
}
