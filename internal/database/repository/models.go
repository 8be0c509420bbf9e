package repository

const (
	// CategoryUncategorized is the default category of every synced transaction.
	CategoryUncategorized = "Uncategorized"
	// CategoryInternalTransfer marks money moved between the user's own accounts.
	CategoryInternalTransfer = "Internal Transfer"
	// AccountTypeUncategorized is the default type of a synced account.
	AccountTypeUncategorized = "uncategorized"
)

// Account represents an account row.
type Account struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
	BalanceDate int64  `json:"balanceDate"`
	Type        string `json:"type"`
}

// Transaction represents a transaction row.
type Transaction struct {
	ID           string  `json:"id"`
	AccountID    string  `json:"accountId"`
	Posted       int64   `json:"posted"`
	Amount       string  `json:"amount"`
	Description  string  `json:"description"`
	Payee        *string `json:"payee,omitempty"`
	TransactedAt *int64  `json:"transactedAt,omitempty"`
	Pending      bool    `json:"pending"`
	Hidden       bool    `json:"hidden"`
	Category     string  `json:"category"`
}

// EffectiveTime is transacted_at when present, posted otherwise.
func (t Transaction) EffectiveTime() int64 {
	if t.TransactedAt != nil {
		return *t.TransactedAt
	}
	return t.Posted
}

// UserConfig is the singleton settings row.
type UserConfig struct {
	DisplayName            *string `json:"displayName"`
	SimpleFINURL           *string `json:"-"`
	ClassifierTrainingDate *string `json:"classifierTrainingDate"`
	AutoCategorize         bool    `json:"autoCategorize"`
	AutoMarkDuplicates     bool    `json:"autoMarkDuplicates"`
}

// HasSimpleFIN reports whether an access URL has been stored.
func (c UserConfig) HasSimpleFIN() bool {
	return c.SimpleFINURL != nil && *c.SimpleFINURL != ""
}
