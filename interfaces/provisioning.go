package interfaces

// ProvisioningState identifies a stage of the account provisioning workflow.
type ProvisioningState string

// Workflow states. TokenRetrieved and Failed are terminal.
const (
	StateCreated           ProvisioningState = "created"
	StateRegistered        ProvisioningState = "registered"
	StateActivationPending ProvisioningState = "activation_pending"
	StateActivated         ProvisioningState = "activated"
	StateLoggedIn          ProvisioningState = "logged_in"
	StateTokenRetrieved    ProvisioningState = "token_retrieved"
	StateFailed            ProvisioningState = "failed"
)

// WorkflowEvent names a transition trigger of the provisioning workflow.
type WorkflowEvent string

// Workflow events.
const (
	EventRegister        WorkflowEvent = "register"
	EventAwaitActivation WorkflowEvent = "await_activation"
	EventActivate        WorkflowEvent = "activate"
	EventLogin           WorkflowEvent = "login"
	EventRetrieveToken   WorkflowEvent = "retrieve_token"
	EventFail            WorkflowEvent = "fail"
)

// Transition is one edge of the provisioning state machine.
type Transition struct {
	Src   ProvisioningState
	Event WorkflowEvent
	Dst   ProvisioningState
}

// WorkflowTransitions declares the provisioning state machine as data. The
// forward path is strictly sequential; any non-terminal state may fail.
var WorkflowTransitions = []Transition{
	{Src: StateCreated, Event: EventRegister, Dst: StateRegistered},
	{Src: StateRegistered, Event: EventAwaitActivation, Dst: StateActivationPending},
	{Src: StateActivationPending, Event: EventActivate, Dst: StateActivated},
	{Src: StateActivated, Event: EventLogin, Dst: StateLoggedIn},
	{Src: StateLoggedIn, Event: EventRetrieveToken, Dst: StateTokenRetrieved},

	{Src: StateCreated, Event: EventFail, Dst: StateFailed},
	{Src: StateRegistered, Event: EventFail, Dst: StateFailed},
	{Src: StateActivationPending, Event: EventFail, Dst: StateFailed},
	{Src: StateActivated, Event: EventFail, Dst: StateFailed},
	{Src: StateLoggedIn, Event: EventFail, Dst: StateFailed},
}

// Step labels the workflow stage a failure is attributed to.
type Step string

// Step labels used in failure reporting.
const (
	StepRegister Step = "register"
	StepActivate Step = "activate"
	StepLogin    Step = "login"
	StepToken    Step = "token"
)
