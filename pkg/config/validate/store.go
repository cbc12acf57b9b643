package validate

import "fmt"

// StoreConfig represents the ledger store configuration for validation purposes.
type StoreConfig struct {
	Backend    string
	SQLitePath string
	RQLiteURL  string
	Namespace  string
}

// ValidateStore checks that the selected backend has what it needs.
func ValidateStore(sc StoreConfig, prefix string) []error {
	var errs []error

	switch sc.Backend {
	case "memory":
	case "sqlite":
		if sc.SQLitePath == "" {
			errs = append(errs, ValidationError{
				Path:    prefix + ".sqlite_path",
				Message: "required when backend is sqlite",
			})
		}
	case "rqlite":
		if sc.RQLiteURL == "" {
			errs = append(errs, ValidationError{
				Path:    prefix + ".rqlite_url",
				Message: "required when backend is rqlite",
				Hint:    "e.g. http://localhost:5001",
			})
		} else if err := ValidateHTTPURL(sc.RQLiteURL); err != nil {
			errs = append(errs, ValidationError{
				Path:    prefix + ".rqlite_url",
				Message: err.Error(),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Path:    prefix + ".backend",
			Message: fmt.Sprintf("invalid value %q", sc.Backend),
			Hint:    "allowed values: memory, sqlite, rqlite",
		})
	}

	if sc.Namespace == "" {
		errs = append(errs, ValidationError{
			Path:    prefix + ".namespace",
			Message: "must not be empty",
		})
	}

	return errs
}
