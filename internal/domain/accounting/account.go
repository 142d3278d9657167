package accounting

// AccountType classifies an account within the chart of accounts
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// AccountID identifies an account in the chart of accounts
type AccountID string

// Well-known accounts used by the journal engine. Grouping accounts carry no
// balance; only leaf accounts may appear on journal transactions.
const (
	AccountAssets      AccountID = "assets"
	AccountLiabilities AccountID = "liabilities"
	AccountEquity      AccountID = "equity"
	AccountRevenue     AccountID = "revenue"
	AccountExpenses    AccountID = "expenses"

	AccountCash               AccountID = "cash"
	AccountAccountsReceivable AccountID = "accounts_receivable"
	AccountCharterPayable     AccountID = "charter_payable"
	AccountCreatorPayable     AccountID = "creator_payable"
	AccountTaxPayable         AccountID = "tax_payable"
	AccountSupplierPayable    AccountID = "supplier_payable"
	AccountNetRevenue         AccountID = "net_revenue"
	AccountSalesRevenue       AccountID = "sales_revenue"
	AccountWebServiceExpense  AccountID = "web_service_commission_expense"
	AccountCostOfTicket       AccountID = "cost_of_ticket"
)

// Account is a node in the chart of accounts. Parent accounts group leaf
// accounts and never hold balances themselves.
type Account struct {
	ID       AccountID   `json:"id"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	ParentID AccountID   `json:"parent_id,omitempty"`
	IsParent bool        `json:"is_parent"`
}
