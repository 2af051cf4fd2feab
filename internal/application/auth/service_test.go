package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geeta-saathi/backend/internal/domain"
	jwtinfra "github.com/geeta-saathi/backend/internal/infrastructure/jwt"
	"github.com/geeta-saathi/backend/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Put(ctx context.Context, c *domain.OneTimeCode) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockCodeStore) Take(ctx context.Context, phone string) (*domain.OneTimeCode, error) {
	args := m.Called(ctx, phone)
	if c, _ := args.Get(0).(*domain.OneTimeCode); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) Restore(ctx context.Context, c *domain.OneTimeCode) error {
	return m.Called(ctx, c).Error(0)
}

// slowStore delays every Take so concurrent verifications overlap.
type slowStore struct {
	*memory.CodeStore
	delay time.Duration
}

func (s slowStore) Take(ctx context.Context, phone string) (*domain.OneTimeCode, error) {
	time.Sleep(s.delay)
	return s.CodeStore.Take(ctx, phone)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, to, msg string) error {
	return m.Called(ctx, to, msg).Error(0)
}

// --- builders ---

const phone = "+919876543210"

func testTokens(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	return jwtinfra.NewHMACProvider([]byte("test-secret"), "geeta-saathi", time.Hour)
}

func newService(t *testing.T, expose bool, store CodeStore, sms SMSSender) Service {
	t.Helper()
	return NewService(ServiceDeps{
		Config: Config{
			ExposeIssuedCode: expose,
			CodeTTL:          10 * time.Minute,
			CountryCode:      "91",
			HashCost:         bcrypt.MinCost,
		},
		CodeStore: store,
		SMSSender: sms,
		Tokens:    testTokens(t),
	})
}

// --- Issue ---

func TestIssue_RejectsMalformedPhone(t *testing.T) {
	svc := newService(t, true, memory.NewCodeStore(), nil)
	for _, p := range []string{"", "9876543210", "+9198765432", "+9198765432100", "+449876543210", "+91987654321a", " +919876543210"} {
		_, err := svc.Issue(context.Background(), p)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), "phone %q", p)
	}
}

func TestIssue_ExposeMode_ReturnsSixDigitCode(t *testing.T) {
	store := memory.NewCodeStore()
	svc := newService(t, true, store, nil)

	before := time.Now()
	issued, err := svc.Issue(context.Background(), phone)
	require.NoError(t, err)
	assert.Regexp(t, `^[1-9][0-9]{5}$`, issued.Code)
	assert.WithinDuration(t, before.Add(10*time.Minute), issued.ExpiresAt, 2*time.Second)
	assert.Equal(t, 1, store.Len())
}

func TestIssue_ExposeMode_DoesNotSendSMS(t *testing.T) {
	sms := &mockSMSSender{}
	svc := newService(t, true, memory.NewCodeStore(), sms)

	_, err := svc.Issue(context.Background(), phone)
	require.NoError(t, err)
	sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_StrictMode_SendsSMSAndHidesCode(t *testing.T) {
	store := &mockCodeStore{}
	sms := &mockSMSSender{}
	var stored *domain.OneTimeCode
	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.OneTimeCode")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.OneTimeCode) }).
		Return(nil)
	var sent string
	sms.On("SendSMS", mock.Anything, phone, mock.MatchedBy(func(msg string) bool {
		return strings.HasPrefix(msg, smsTemplate)
	})).Run(func(args mock.Arguments) { sent = strings.TrimPrefix(args.String(2), smsTemplate) }).Return(nil)

	svc := newService(t, false, store, sms)
	issued, err := svc.Issue(context.Background(), phone)
	require.NoError(t, err)
	assert.Empty(t, issued.Code)

	require.NotNil(t, stored)
	assert.Equal(t, phone, stored.PhoneNumber)
	assert.NotEqual(t, sent, stored.CodeHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte(sent)))
	assert.Equal(t, int64(600), stored.ExpiresAt-stored.IssuedAt)
	store.AssertExpectations(t)
	sms.AssertExpectations(t)
}

func TestIssue_StrictMode_NoSenderStillAcknowledges(t *testing.T) {
	svc := newService(t, false, memory.NewCodeStore(), nil)
	issued, err := svc.Issue(context.Background(), phone)
	require.NoError(t, err)
	assert.Empty(t, issued.Code)
}

func TestIssue_SMSFailure(t *testing.T) {
	sms := &mockSMSSender{}
	sms.On("SendSMS", mock.Anything, phone, mock.Anything).Return(errors.New("sns down"))

	svc := newService(t, false, memory.NewCodeStore(), sms)
	_, err := svc.Issue(context.Background(), phone)
	assert.ErrorContains(t, err, "sns down")
}

func TestIssue_StoreFailure(t *testing.T) {
	store := &mockCodeStore{}
	store.On("Put", mock.Anything, mock.Anything).Return(errors.New("boom"))

	svc := newService(t, true, store, nil)
	_, err := svc.Issue(context.Background(), phone)
	assert.ErrorContains(t, err, "store otp")
}

// --- Verify (expose mode) ---

func TestVerify_ExposeMode_AcceptsAnySixDigits(t *testing.T) {
	svc := newService(t, true, memory.NewCodeStore(), nil)
	for _, code := range []string{"123456", "000000", "999999"} {
		v, err := svc.Verify(context.Background(), phone, code)
		require.NoError(t, err)
		assert.True(t, v.Success, code)
		assert.NotEmpty(t, v.Token)
		require.NotNil(t, v.User)
		assert.Equal(t, phone, v.User.Phone)
		assert.False(t, v.User.IsNewUser)
		assert.True(t, strings.HasPrefix(v.User.ID, "user_"))
	}
}

func TestVerify_RejectsMalformedCode(t *testing.T) {
	for _, expose := range []bool{true, false} {
		svc := newService(t, expose, memory.NewCodeStore(), nil)
		for _, code := range []string{"", "12345", "1234567", "abcdef", "12 456", "١٢٣٤٥٦"} {
			v, err := svc.Verify(context.Background(), phone, code)
			require.NoError(t, err)
			assert.False(t, v.Success, "code %q", code)
			assert.Empty(t, v.Token)
			assert.Nil(t, v.User)
		}
	}
}

func TestVerify_RepeatedVerificationsSynthesizeDistinctUsers(t *testing.T) {
	svc := newService(t, true, memory.NewCodeStore(), nil)
	a, err := svc.Verify(context.Background(), phone, "123456")
	require.NoError(t, err)
	b, err := svc.Verify(context.Background(), phone, "123456")
	require.NoError(t, err)
	assert.NotEqual(t, a.User.ID, b.User.ID)
	assert.False(t, b.User.IsNewUser)
}

func TestDecodeToken_RecoversPhone(t *testing.T) {
	svc := newService(t, true, memory.NewCodeStore(), nil)
	v, err := svc.Verify(context.Background(), phone, "123456")
	require.NoError(t, err)

	got, err := svc.DecodeToken(v.Token)
	require.NoError(t, err)
	assert.Equal(t, phone, got)
}

func TestDecodeToken_Invalid(t *testing.T) {
	svc := newService(t, true, memory.NewCodeStore(), nil)
	_, err := svc.DecodeToken("KzkxOTg3NjU0MzIxMDoxNzAwMDAwMDAw")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

// --- Verify (strict mode) ---

func issueStrict(t *testing.T, svc Service, sms *mockSMSSender) string {
	t.Helper()
	var sent string
	sms.On("SendSMS", mock.Anything, phone, mock.Anything).
		Run(func(args mock.Arguments) { sent = strings.TrimPrefix(args.String(2), smsTemplate) }).
		Return(nil)
	_, err := svc.Issue(context.Background(), phone)
	require.NoError(t, err)
	return sent
}

func TestVerify_StrictMode_IssuedCodeIsSingleUse(t *testing.T) {
	store := memory.NewCodeStore()
	sms := &mockSMSSender{}
	svc := newService(t, false, store, sms)
	code := issueStrict(t, svc, sms)

	v, err := svc.Verify(context.Background(), phone, code)
	require.NoError(t, err)
	assert.True(t, v.Success)
	assert.Equal(t, 0, store.Len())

	v, err = svc.Verify(context.Background(), phone, code)
	require.NoError(t, err)
	assert.False(t, v.Success)
}

func TestVerify_StrictMode_WrongCode(t *testing.T) {
	sms := &mockSMSSender{}
	svc := newService(t, false, memory.NewCodeStore(), sms)
	code := issueStrict(t, svc, sms)

	wrong := "100000"
	if code == wrong {
		wrong = "100001"
	}
	v, err := svc.Verify(context.Background(), phone, wrong)
	require.NoError(t, err)
	assert.False(t, v.Success)
}

func TestVerify_StrictMode_NothingIssued(t *testing.T) {
	svc := newService(t, false, memory.NewCodeStore(), nil)
	v, err := svc.Verify(context.Background(), phone, "123456")
	require.NoError(t, err)
	assert.False(t, v.Success)
}

func TestVerify_StrictMode_Expired(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &mockCodeStore{}
	store.On("Take", mock.Anything, phone).Return(&domain.OneTimeCode{
		PhoneNumber: phone,
		CodeHash:    string(hash),
		ExpiresAt:   time.Now().Add(-time.Second).Unix(),
	}, nil)

	svc := newService(t, false, store, nil)
	v, err := svc.Verify(context.Background(), phone, "123456")
	require.NoError(t, err)
	assert.False(t, v.Success)
	store.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything)
}

func TestVerify_StrictMode_StoreError(t *testing.T) {
	store := &mockCodeStore{}
	store.On("Take", mock.Anything, phone).Return(nil, errors.New("connection refused"))

	svc := newService(t, false, store, nil)
	v, err := svc.Verify(context.Background(), phone, "123456")
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, v.Success)
}

func TestVerify_StrictMode_ConcurrentVerifiesSucceedOnce(t *testing.T) {
	store := slowStore{CodeStore: memory.NewCodeStore(), delay: 20 * time.Millisecond}
	sms := &mockSMSSender{}
	svc := newService(t, false, store, sms)
	code := issueStrict(t, svc, sms)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.Verify(context.Background(), phone, code)
			if err == nil && v.Success {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestVerify_StrictMode_WrongGuessesBurnCode(t *testing.T) {
	store := memory.NewCodeStore()
	sms := &mockSMSSender{}
	svc := newService(t, false, store, sms)
	code := issueStrict(t, svc, sms)

	wrong := "100000"
	if code == wrong {
		wrong = "100001"
	}
	for i := 0; i < defaultMaxAttempts; i++ {
		v, err := svc.Verify(context.Background(), phone, wrong)
		require.NoError(t, err)
		assert.False(t, v.Success)
	}
	assert.Equal(t, 0, store.Len())

	v, err := svc.Verify(context.Background(), phone, code)
	require.NoError(t, err)
	assert.False(t, v.Success)
}

func TestVerify_StrictMode_WrongGuessKeepsCodeUsable(t *testing.T) {
	store := memory.NewCodeStore()
	sms := &mockSMSSender{}
	svc := newService(t, false, store, sms)
	code := issueStrict(t, svc, sms)

	wrong := "100000"
	if code == wrong {
		wrong = "100001"
	}
	v, err := svc.Verify(context.Background(), phone, wrong)
	require.NoError(t, err)
	assert.False(t, v.Success)

	v, err = svc.Verify(context.Background(), phone, code)
	require.NoError(t, err)
	assert.True(t, v.Success)
}

func TestVerify_StrictMode_WrongGuessRestoresWithAttempt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	require.NoError(t, err)
	store := &mockCodeStore{}
	store.On("Take", mock.Anything, phone).Return(&domain.OneTimeCode{
		PhoneNumber: phone,
		CodeHash:    string(hash),
		ExpiresAt:   time.Now().Add(time.Minute).Unix(),
		Attempts:    1,
	}, nil)
	store.On("Restore", mock.Anything, mock.MatchedBy(func(c *domain.OneTimeCode) bool {
		return c.Attempts == 2
	})).Return(nil)

	svc := newService(t, false, store, nil)
	v, err := svc.Verify(context.Background(), phone, "654321")
	require.NoError(t, err)
	assert.False(t, v.Success)
	store.AssertExpectations(t)
}

func TestGenerateCode_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		c, err := generateCode()
		require.NoError(t, err)
		assert.True(t, validCode(c), c)
		assert.NotEqual(t, byte('0'), c[0])
	}
}
