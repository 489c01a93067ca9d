package gate

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	// ActionEmail covers sending mail on behalf of the system to an account.
	ActionEmail Action = "email"
)

// Actions lists the built-in actions, used when seeding resource permissions.
var Actions = []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionList, ActionEmail}
