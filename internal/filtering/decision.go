package filtering

// Decision is the outcome of evaluating a show. The concrete type is always
// one of Admit, Reject or Defer.
type Decision interface {
	// Reason is the human readable explanation stored and logged with the decision
	Reason() string

	// Kind names the decision in logs and traces
	Kind() string

	decision()
}

// Admit means the show matched a selection and should be forwarded
type Admit struct {
	Selection string
	Params    ForwardParams
}

// Reject means the show must not be forwarded
type Reject struct {
	Message  string
	Category string
}

// Defer means the show cannot be decided until it has a TVDB id
type Defer struct{}

var (
	_ Decision = Admit{}
	_ Decision = Reject{}
	_ Decision = Defer{}
)

// Reason implements Decision
func (a Admit) Reason() string {
	return "Matched: " + a.Selection
}

// Reason implements Decision
func (r Reject) Reason() string {
	return r.Message
}

// Reason implements Decision
func (Defer) Reason() string {
	return "No TVDB ID available"
}

// Category returns the deferral category
func (Defer) Category() string {
	return CategoryTVDB
}

// Kind implements Decision
func (Admit) Kind() string { return "admit" }

// Kind implements Decision
func (Reject) Kind() string { return "reject" }

// Kind implements Decision
func (Defer) Kind() string { return "defer" }

func (Admit) decision()  {}
func (Reject) decision() {}
func (Defer) decision()  {}
