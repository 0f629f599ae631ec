package query

// Op is a mutation the cache performs on behalf of the UI.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpToggle Op = "toggle"
	OpDelete Op = "delete"
)

// Kind tells the UI how to present a notification.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
)

func (k Kind) String() string {
	if k == KindError {
		return "error"
	}
	return "success"
}

// Notification is the user-visible outcome of one mutation.
type Notification struct {
	Kind    Kind
	Op      Op
	Message string
	Err     error
}

var successMessages = map[Op]string{
	OpCreate: "Todo added",
	OpUpdate: "Todo updated",
	OpToggle: "Todo status updated",
	OpDelete: "Todo deleted",
}

// Notify maps the result of a mutation to the notification to show.
func Notify(op Op, err error) Notification {
	if err != nil {
		return Notification{Kind: KindError, Op: op, Message: err.Error(), Err: err}
	}
	return Notification{Kind: KindSuccess, Op: op, Message: successMessages[op]}
}

// Notifier receives notifications as mutations settle.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type discard struct{}

func (discard) Notify(Notification) {}
