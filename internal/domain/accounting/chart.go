package accounting

import "sort"

// Chart is an immutable chart of accounts built once at startup.
// Account edits are an admin concern outside this engine.
type Chart struct {
	accounts map[AccountID]*Account
}

// NewChart builds a chart from the given accounts, validating uniqueness and
// parent references.
func NewChart(accounts ...*Account) (*Chart, error) {
	byID := make(map[AccountID]*Account, len(accounts))
	for _, acc := range accounts {
		if acc.ID == "" {
			return nil, ErrEmptyAccountID
		}
		if _, exists := byID[acc.ID]; exists {
			return nil, ErrDuplicateAccount{AccountID: acc.ID}
		}
		byID[acc.ID] = acc
	}

	for _, acc := range byID {
		if acc.ParentID == "" {
			continue
		}
		parent, ok := byID[acc.ParentID]
		if !ok {
			return nil, ErrUnknownAccount{AccountID: acc.ParentID}
		}
		if !parent.IsParent {
			return nil, ErrNotParentAccount{AccountID: parent.ID}
		}
	}

	return &Chart{accounts: byID}, nil
}

// Account returns the account with the given ID, or nil if it is not in the chart.
func (c *Chart) Account(id AccountID) *Account {
	return c.accounts[id]
}

// IsLeaf reports whether the account exists and may hold balances.
func (c *Chart) IsLeaf(id AccountID) bool {
	acc, ok := c.accounts[id]
	return ok && !acc.IsParent
}

// Accounts returns all accounts sorted by ID for stable listing.
func (c *Chart) Accounts() []*Account {
	out := make([]*Account, 0, len(c.accounts))
	for _, acc := range c.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultChart returns the chart used by the booking financial engine:
// commission bookings post against cash, the commission payables,
// web-service expense, net revenue and tax payable; manual bookings post
// against receivables, sales revenue, ticket cost and the supplier payable.
func DefaultChart() *Chart {
	chart, err := NewChart(
		&Account{ID: AccountAssets, Name: "Assets", Type: AccountTypeAsset, IsParent: true},
		&Account{ID: AccountLiabilities, Name: "Liabilities", Type: AccountTypeLiability, IsParent: true},
		&Account{ID: AccountEquity, Name: "Equity", Type: AccountTypeEquity, IsParent: true},
		&Account{ID: AccountRevenue, Name: "Revenue", Type: AccountTypeRevenue, IsParent: true},
		&Account{ID: AccountExpenses, Name: "Expenses", Type: AccountTypeExpense, IsParent: true},

		&Account{ID: AccountCash, Name: "Cash", Type: AccountTypeAsset, ParentID: AccountAssets},
		&Account{ID: AccountAccountsReceivable, Name: "Accounts Receivable", Type: AccountTypeAsset, ParentID: AccountAssets},
		&Account{ID: AccountCharterPayable, Name: "Charter Commission Payable", Type: AccountTypeLiability, ParentID: AccountLiabilities},
		&Account{ID: AccountCreatorPayable, Name: "Creator Commission Payable", Type: AccountTypeLiability, ParentID: AccountLiabilities},
		&Account{ID: AccountTaxPayable, Name: "Tax Payable", Type: AccountTypeLiability, ParentID: AccountLiabilities},
		&Account{ID: AccountSupplierPayable, Name: "Accounts Payable - Supplier", Type: AccountTypeLiability, ParentID: AccountLiabilities},
		&Account{ID: AccountNetRevenue, Name: "Net Booking Revenue", Type: AccountTypeRevenue, ParentID: AccountRevenue},
		&Account{ID: AccountSalesRevenue, Name: "Ticket Sales Revenue", Type: AccountTypeRevenue, ParentID: AccountRevenue},
		&Account{ID: AccountWebServiceExpense, Name: "Web Service Commission Expense", Type: AccountTypeExpense, ParentID: AccountExpenses},
		&Account{ID: AccountCostOfTicket, Name: "Cost of Ticket", Type: AccountTypeExpense, ParentID: AccountExpenses},
	)
	if err != nil {
		// The default chart is static; a construction error is a programming defect.
		panic(err)
	}
	return chart
}
