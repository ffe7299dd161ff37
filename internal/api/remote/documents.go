package remote

// Operation names, as sent in operationName.
const (
	opRegister       = "Register"
	opLogin          = "Login"
	opAddExpense     = "AddExpense"
	opUpdateExpense  = "UpdateExpense"
	opDeleteExpense  = "DeleteExpense"
	opGetExpenses    = "GetExpenses"
	opGetExpenseByID = "GetExpenseByID"
	opExpenseSummary = "ExpenseSummary"
)

const expenseFields = `id amount category description date`

const (
	registerMutation = `mutation Register($input: RegisterInput!) {
  register(input: $input) { token user { id name email } }
}`

	loginMutation = `mutation Login($input: LoginInput!) {
  login(input: $input) { token user { id name email } }
}`

	addExpenseMutation = `mutation AddExpense($input: NewExpense!) {
  addExpense(input: $input) { ` + expenseFields + ` }
}`

	updateExpenseMutation = `mutation UpdateExpense($input: UpdateExpenseInput!) {
  updateExpense(input: $input) { ` + expenseFields + ` }
}`

	deleteExpenseMutation = `mutation DeleteExpense($id: ID!) {
  deleteExpense(id: $id)
}`

	getExpensesQuery = `query GetExpenses($date: String, $category: String) {
  getExpenses(date: $date, category: $category) { ` + expenseFields + ` }
}`

	getExpenseByIDQuery = `query GetExpenseByID($id: ID!) {
  getExpenseByID(id: $id) { ` + expenseFields + ` }
}`

	expenseSummaryQuery = `query ExpenseSummary($startDate: String!, $endDate: String!) {
  expenseSummary(startDate: $startDate, endDate: $endDate) {
    totalAmount
    totalCount
    byCategory { category total }
  }
}`
)
