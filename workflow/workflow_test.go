package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scanpool/scanpool/account"
	"github.com/scanpool/scanpool/inbox"
	"github.com/scanpool/scanpool/interfaces"
	"github.com/scanpool/scanpool/metrics"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

const activationBody = "Welcome!\nConfirm at https://wpscan.com/confirm?token=abc123XYZ to finish."

var (
	testID  = interfaces.Identity{Username: "quietriver42", Domain: "example.org"}
	testMsg = interfaces.Message{ID: "m1", From: "security@wpscan.com"}
)

func testConfig() Config {
	return Config{
		Sender:      "security@wpscan.com",
		LinkPattern: `https://wpscan\.com/confirm\?token=([A-Za-z0-9]+)`,
		Attempts:    5,
		Delay:       time.Millisecond,
		Log:         testLog,
	}
}

func newTestWorkflow(t *testing.T, inboxMock *inbox.MockClient, accountMock *account.MockClient) *Workflow {
	t.Helper()
	w, err := New(testConfig(), inboxMock, accountMock)
	require.NoError(t, err)
	return w
}

func TestRunProvisionsAccount(t *testing.T) {
	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{testMsg}, nil).Once()
	inboxMock.On("FetchMessage", mock.Anything, testID, "m1").Return(activationBody, nil).Once()
	accountMock.On("ConfirmActivation", mock.Anything, "abc123XYZ").Return(true, nil).Once()
	accountMock.On("Login", mock.Anything, "quietriver42@example.org", "pw!").Return(true, nil).Once()
	accountMock.On("FetchProfile", mock.Anything).
		Return(interfaces.Profile{API: interfaces.APICredential{Token: "tok-1"}}, nil).Once()

	w := newTestWorkflow(t, inboxMock, accountMock)
	acct, err := w.Run(context.Background(), testID, "pw!", "Dana")
	require.NoError(t, err)
	require.Equal(t, interfaces.Account{
		Email:    "quietriver42@example.org",
		Password: "pw!",
		APIToken: "tok-1",
	}, acct)

	inboxMock.AssertExpectations(t)
	accountMock.AssertExpectations(t)
}

func TestActivationArrivesAfterEmptyPolls(t *testing.T) {
	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{}, nil).Twice()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{testMsg}, nil).Once()
	inboxMock.On("FetchMessage", mock.Anything, testID, "m1").Return(activationBody, nil).Once()
	accountMock.On("ConfirmActivation", mock.Anything, "abc123XYZ").Return(true, nil).Once()
	accountMock.On("Login", mock.Anything, "quietriver42@example.org", "pw!").Return(true, nil).Once()
	accountMock.On("FetchProfile", mock.Anything).
		Return(interfaces.Profile{API: interfaces.APICredential{Token: "tok-1"}}, nil).Once()

	w := newTestWorkflow(t, inboxMock, accountMock)
	_, err := w.Run(context.Background(), testID, "pw!", "Dana")
	require.NoError(t, err)

	inboxMock.AssertNumberOfCalls(t, "ListMessages", 3)
}

func TestActivationBudgetExhausted(t *testing.T) {
	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{}, nil)

	w := newTestWorkflow(t, inboxMock, accountMock)
	_, err := w.Run(context.Background(), testID, "pw!", "Dana")
	require.Error(t, err)

	var stepErr *interfaces.StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, interfaces.StepActivate, stepErr.Step)

	var timeoutErr *interfaces.ActivationTimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	require.Equal(t, 5, timeoutErr.Attempts)

	inboxMock.AssertNumberOfCalls(t, "ListMessages", 5)
	accountMock.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestMalformedActivationFailsImmediately(t *testing.T) {
	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{testMsg}, nil).Once()
	inboxMock.On("FetchMessage", mock.Anything, testID, "m1").Return("greetings, no link here", nil).Once()

	w := newTestWorkflow(t, inboxMock, accountMock)
	_, err := w.Run(context.Background(), testID, "pw!", "Dana")
	require.ErrorIs(t, err, interfaces.ErrNoActivationLink)

	var stepErr *interfaces.StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, interfaces.StepActivate, stepErr.Step)

	inboxMock.AssertNumberOfCalls(t, "ListMessages", 1)
	accountMock.AssertNotCalled(t, "ConfirmActivation", mock.Anything, mock.Anything)
}

func TestRejectedTokenConsumesBudget(t *testing.T) {
	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{testMsg}, nil)
	inboxMock.On("FetchMessage", mock.Anything, testID, "m1").Return(activationBody, nil)
	accountMock.On("ConfirmActivation", mock.Anything, "abc123XYZ").Return(false, nil)

	w := newTestWorkflow(t, inboxMock, accountMock)
	_, err := w.Run(context.Background(), testID, "pw!", "Dana")
	require.Error(t, err)

	var timeoutErr *interfaces.ActivationTimeoutError
	require.True(t, errors.As(err, &timeoutErr))

	accountMock.AssertNumberOfCalls(t, "ConfirmActivation", 5)
}

func TestInboxErrorAbortsPolling(t *testing.T) {
	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).
		Return([]interfaces.Message(nil), errors.New("inbox unreachable")).Once()

	w := newTestWorkflow(t, inboxMock, accountMock)
	_, err := w.Run(context.Background(), testID, "pw!", "Dana")
	require.Error(t, err)

	var stepErr *interfaces.StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, interfaces.StepActivate, stepErr.Step)

	inboxMock.AssertNumberOfCalls(t, "ListMessages", 1)
}

func TestRegisterFailureSkipsInbox(t *testing.T) {
	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").
		Return(errors.New("Email has already been taken")).Once()

	w := newTestWorkflow(t, inboxMock, accountMock)
	_, err := w.Run(context.Background(), testID, "pw!", "Dana")
	require.Error(t, err)

	var stepErr *interfaces.StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, interfaces.StepRegister, stepErr.Step)

	inboxMock.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
}

func TestLoginFailureAttributedToLoginStep(t *testing.T) {
	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{testMsg}, nil).Once()
	inboxMock.On("FetchMessage", mock.Anything, testID, "m1").Return(activationBody, nil).Once()
	accountMock.On("ConfirmActivation", mock.Anything, "abc123XYZ").Return(true, nil).Once()
	accountMock.On("Login", mock.Anything, "quietriver42@example.org", "pw!").Return(false, nil).Once()

	w := newTestWorkflow(t, inboxMock, accountMock)
	_, err := w.Run(context.Background(), testID, "pw!", "Dana")
	require.ErrorIs(t, err, interfaces.ErrLoginRejected)

	var stepErr *interfaces.StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, interfaces.StepLogin, stepErr.Step)
	require.Contains(t, err.Error(), "login step failed for quietriver42@example.org")

	accountMock.AssertNotCalled(t, "FetchProfile", mock.Anything)
}

func TestMissingAPITokenFailsTokenStep(t *testing.T) {
	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{testMsg}, nil).Once()
	inboxMock.On("FetchMessage", mock.Anything, testID, "m1").Return(activationBody, nil).Once()
	accountMock.On("ConfirmActivation", mock.Anything, "abc123XYZ").Return(true, nil).Once()
	accountMock.On("Login", mock.Anything, "quietriver42@example.org", "pw!").Return(true, nil).Once()
	accountMock.On("FetchProfile", mock.Anything).Return(interfaces.Profile{}, nil).Once()

	w := newTestWorkflow(t, inboxMock, accountMock)
	_, err := w.Run(context.Background(), testID, "pw!", "Dana")
	require.ErrorIs(t, err, interfaces.ErrMissingAPIToken)

	var stepErr *interfaces.StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, interfaces.StepToken, stepErr.Step)
}

func TestIgnoresMessagesFromOtherSenders(t *testing.T) {
	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	noise := interfaces.Message{ID: "spam1", From: "deals@example.com"}

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{noise}, nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).
		Return([]interfaces.Message{noise, testMsg}, nil).Once()
	inboxMock.On("FetchMessage", mock.Anything, testID, "m1").Return(activationBody, nil).Once()
	accountMock.On("ConfirmActivation", mock.Anything, "abc123XYZ").Return(true, nil).Once()
	accountMock.On("Login", mock.Anything, "quietriver42@example.org", "pw!").Return(true, nil).Once()
	accountMock.On("FetchProfile", mock.Anything).
		Return(interfaces.Profile{API: interfaces.APICredential{Token: "tok-1"}}, nil).Once()

	w := newTestWorkflow(t, inboxMock, accountMock)
	_, err := w.Run(context.Background(), testID, "pw!", "Dana")
	require.NoError(t, err)

	inboxMock.AssertNotCalled(t, "FetchMessage", mock.Anything, mock.Anything, "spam1")
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := testConfig()
	cfg.Metrics = metrics.NewProvisioningMetrics("scanpool", reg)

	inboxMock := new(inbox.MockClient)
	accountMock := new(account.MockClient)

	accountMock.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{}, nil).Once()
	inboxMock.On("ListMessages", mock.Anything, testID).Return([]interfaces.Message{testMsg}, nil).Once()
	inboxMock.On("FetchMessage", mock.Anything, testID, "m1").Return(activationBody, nil).Once()
	accountMock.On("ConfirmActivation", mock.Anything, "abc123XYZ").Return(true, nil).Once()
	accountMock.On("Login", mock.Anything, "quietriver42@example.org", "pw!").Return(true, nil).Once()
	accountMock.On("FetchProfile", mock.Anything).
		Return(interfaces.Profile{API: interfaces.APICredential{Token: "tok-1"}}, nil).Once()

	w, err := New(cfg, inboxMock, accountMock)
	require.NoError(t, err)
	_, err = w.Run(context.Background(), testID, "pw!", "Dana")
	require.NoError(t, err)

	failInbox := new(inbox.MockClient)
	failAccount := new(account.MockClient)
	failAccount.On("Register", mock.Anything, testID, "pw!", "Dana").Return(nil).Once()
	failInbox.On("ListMessages", mock.Anything, testID).
		Return([]interfaces.Message(nil), errors.New("inbox unreachable")).Once()

	w, err = New(cfg, failInbox, failAccount)
	require.NoError(t, err)
	_, err = w.Run(context.Background(), testID, "pw!", "Dana")
	require.Error(t, err)

	expected := `
# HELP scanpool_activation_polls_total Activation polling rounds by result.
# TYPE scanpool_activation_polls_total counter
scanpool_activation_polls_total{result="non_retryable_failure"} 1
scanpool_activation_polls_total{result="retryable_miss"} 1
scanpool_activation_polls_total{result="success"} 1
# HELP scanpool_provisioning_attempts_total Provisioning attempts by outcome.
# TYPE scanpool_provisioning_attempts_total counter
scanpool_provisioning_attempts_total{outcome="failure"} 1
scanpool_provisioning_attempts_total{outcome="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"scanpool_provisioning_attempts_total", "scanpool_activation_polls_total"))
}

func TestNewAppliesDefaults(t *testing.T) {
	w, err := New(Config{Log: testLog}, new(inbox.MockClient), new(account.MockClient))
	require.NoError(t, err)
	require.Equal(t, DefaultSender, w.cfg.Sender)
	require.Equal(t, DefaultLinkPattern, w.cfg.LinkPattern)
	require.Equal(t, DefaultAttempts, w.cfg.Attempts)
	require.Equal(t, DefaultDelay, w.cfg.Delay)
}

func TestNewRejectsPatternWithoutCaptureGroup(t *testing.T) {
	cfg := testConfig()
	cfg.LinkPattern = `https://wpscan\.com/confirm`
	_, err := New(cfg, new(inbox.MockClient), new(account.MockClient))
	require.Error(t, err)
}

func TestNewRejectsMalformedPattern(t *testing.T) {
	cfg := testConfig()
	cfg.LinkPattern = `https://(`
	_, err := New(cfg, new(inbox.MockClient), new(account.MockClient))
	require.Error(t, err)
}
