package bot

import (
	"context"
	"testing"

	"ClipPay/internal/core/domain"
	"ClipPay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

// MockUserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ ports.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepository) GetByTelegramID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepository) SetState(ctx context.Context, id uuid.UUID, state domain.ConversationState) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}
func (m *MockUserRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockUserRepository) ListAdmins(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}
func (m *MockUserRepository) CountActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockCommandHandler
type MockCommandHandler struct {
	mock.Mock
}

func (m *MockCommandHandler) Command() string {
	args := m.Called()
	return args.String(0)
}
func (m *MockCommandHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	args := m.Called(ctx, update, user)
	return args.Error(0)
}

// MockCallbackHandler
type MockCallbackHandler struct {
	mock.Mock
}

func (m *MockCallbackHandler) Prefix() string {
	args := m.Called()
	return args.String(0)
}
func (m *MockCallbackHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	args := m.Called(ctx, update, user)
	return args.Error(0)
}

// MockBotClient is a mock for the BotClientPort
type MockBotClient struct {
	mock.Mock
}

var _ ports.BotClientPort = (*MockBotClient)(nil)

func (m *MockBotClient) SendMessage(ctx context.Context, params ports.SendMessageParams) (int, error) {
	args := m.Called(ctx, params)
	return args.Int(0), args.Error(1)
}
func (m *MockBotClient) EditMessageText(ctx context.Context, params ports.EditMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}
func (m *MockBotClient) AnswerCallbackQuery(ctx context.Context, params ports.AnswerCallbackParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockMessageHandler is a mock state-machine handler
type MockMessageHandler struct {
	mock.Mock
}

func (m *MockMessageHandler) Handle(ctx context.Context, update *ports.BotUpdate, user *domain.User) error {
	args := m.Called(ctx, update, user)
	return args.Error(0)
}

// --- Tests ---

func TestRouter_HandleUpdate_Command(t *testing.T) {
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	mockUserRepo := new(MockUserRepository)
	mockBotClient := new(MockBotClient)

	router := NewRouter(mockUserRepo, mockBotClient, &nopLogger)

	startHandler := new(MockCommandHandler)
	startHandler.On("Command").Return("start")
	startHandler.On("Handle", mock.Anything, mock.AnythingOfType("*ports.BotUpdate"), (*domain.User)(nil)).Return(nil).Once()

	helpHandler := new(MockCommandHandler)
	helpHandler.On("Command").Return("help")

	router.RegisterCommandHandler(startHandler)
	router.RegisterCommandHandler(helpHandler)

	update := &ports.BotUpdate{
		MessageID: 456,
		ChatID:    1000,
		UserID:    789,
		Text:      "/start",
		Command:   "start",
	}

	// /start is the one command that may run for an unknown user.
	mockUserRepo.On("GetByTelegramID", mock.Anything, int64(789)).Return(nil, nil).Once()

	router.HandleUpdate(ctx, update)

	mockUserRepo.AssertExpectations(t)
	startHandler.AssertExpectations(t)
	helpHandler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_HandleUpdate_UnknownUserGetsRegisterPrompt(t *testing.T) {
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	mockUserRepo := new(MockUserRepository)
	mockBotClient := new(MockBotClient)

	router := NewRouter(mockUserRepo, mockBotClient, &nopLogger)

	// A command handler exists, but an unknown user must not reach it.
	balanceHandler := new(MockCommandHandler)
	balanceHandler.On("Command").Return("balance")
	router.RegisterCommandHandler(balanceHandler)

	update := &ports.BotUpdate{
		ChatID:  1000,
		UserID:  789,
		Text:    "/balance",
		Command: "balance",
	}

	mockUserRepo.On("GetByTelegramID", mock.Anything, int64(789)).Return(nil, nil).Once()
	mockBotClient.On("SendMessage", mock.Anything, mock.AnythingOfType("ports.SendMessageParams")).Return(0, nil).Once()

	router.HandleUpdate(ctx, update)

	mockUserRepo.AssertExpectations(t)
	mockBotClient.AssertExpectations(t)
	balanceHandler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_HandleUpdate_UnknownUserFreeTextStartsRegistration(t *testing.T) {
	// A brand-new user's first plain message must begin registration,
	// whatever the text says.
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	mockUserRepo := new(MockUserRepository)
	mockBotClient := new(MockBotClient)

	router := NewRouter(mockUserRepo, mockBotClient, &nopLogger)

	startHandler := new(MockCommandHandler)
	startHandler.On("Command").Return("start")
	startHandler.On("Handle", mock.Anything, mock.AnythingOfType("*ports.BotUpdate"), (*domain.User)(nil)).Return(nil).Once()
	router.RegisterCommandHandler(startHandler)

	msgHandler := new(MockMessageHandler)
	router.SetMessageHandler(msgHandler)

	update := &ports.BotUpdate{
		ChatID: 1000,
		UserID: 789,
		Text:   "Jasur Rahimov",
	}

	mockUserRepo.On("GetByTelegramID", mock.Anything, int64(789)).Return(nil, nil).Once()

	router.HandleUpdate(ctx, update)

	mockUserRepo.AssertExpectations(t)
	startHandler.AssertExpectations(t)
	// The bootstrap owns the reply; the router sends no "please
	// register" prompt and the state machine never runs.
	mockBotClient.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
	msgHandler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_HandleUpdate_UnknownCommand(t *testing.T) {
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	mockUserRepo := new(MockUserRepository)
	mockBotClient := new(MockBotClient)

	router := NewRouter(mockUserRepo, mockBotClient, &nopLogger)

	testUser := &domain.User{ID: uuid.New(), TelegramID: 789, Registered: true}

	update := &ports.BotUpdate{
		ChatID:  1000,
		UserID:  789,
		Text:    "/frobnicate",
		Command: "frobnicate",
	}

	mockUserRepo.On("GetByTelegramID", mock.Anything, int64(789)).Return(testUser, nil).Once()
	mockBotClient.On("SendMessage", mock.Anything, mock.AnythingOfType("ports.SendMessageParams")).Return(0, nil).Once()

	router.HandleUpdate(ctx, update)

	mockUserRepo.AssertExpectations(t)
	mockBotClient.AssertExpectations(t)
}

func TestRouter_HandleUpdate_Callback(t *testing.T) {
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	mockUserRepo := new(MockUserRepository)
	mockBotClient := new(MockBotClient)

	router := NewRouter(mockUserRepo, mockBotClient, &nopLogger)

	testUser := &domain.User{ID: uuid.New(), TelegramID: 789, Registered: true, IsAdmin: true}

	approveHandler := new(MockCallbackHandler)
	approveHandler.On("Prefix").Return("approve_video")
	approveHandler.On("Handle", mock.Anything, mock.AnythingOfType("*ports.BotUpdate"), testUser).Return(nil).Once()
	router.RegisterCallbackHandler(approveHandler)

	callbackData := "approve_video:17"
	update := &ports.BotUpdate{
		MessageID:       456,
		ChatID:          1000,
		UserID:          789,
		CallbackQueryID: "cb_id_1",
		CallbackData:    &callbackData,
	}

	mockUserRepo.On("GetByTelegramID", mock.Anything, int64(789)).Return(testUser, nil).Once()

	router.HandleUpdate(ctx, update)

	mockUserRepo.AssertExpectations(t)
	approveHandler.AssertExpectations(t)
}

func TestRouter_HandleUpdate_StateRouting(t *testing.T) {
	// A text message from a known user goes to the state machine.
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	mockUserRepo := new(MockUserRepository)
	mockBotClient := new(MockBotClient)

	router := NewRouter(mockUserRepo, mockBotClient, &nopLogger)

	msgHandler := new(MockMessageHandler)
	router.SetMessageHandler(msgHandler)

	testUser := &domain.User{
		ID:    uuid.New(),
		State: domain.ConversationState{Kind: domain.StateAwaitingName},
	}

	update := &ports.BotUpdate{
		MessageID: 456,
		ChatID:    1000,
		UserID:    789,
		Text:      "Aziz Karimov",
	}

	mockUserRepo.On("GetByTelegramID", mock.Anything, int64(789)).Return(testUser, nil).Once()
	msgHandler.On("Handle", mock.Anything, mock.AnythingOfType("*ports.BotUpdate"), testUser).Return(nil).Once()

	router.HandleUpdate(ctx, update)

	mockUserRepo.AssertExpectations(t)
	msgHandler.AssertExpectations(t)
	mockBotClient.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestRouter_HandleUpdate_BlockedUserDeactivated(t *testing.T) {
	ctx := context.Background()
	nopLogger := zerolog.Nop()
	mockUserRepo := new(MockUserRepository)
	mockBotClient := new(MockBotClient)

	router := NewRouter(mockUserRepo, mockBotClient, &nopLogger)

	msgHandler := new(MockMessageHandler)
	router.SetMessageHandler(msgHandler)

	testUser := &domain.User{
		ID:         uuid.New(),
		Registered: true,
		State:      domain.StateIdle,
	}

	update := &ports.BotUpdate{
		ChatID:  1000,
		UserID:  789,
		Blocked: true,
	}

	mockUserRepo.On("GetByTelegramID", mock.Anything, int64(789)).Return(testUser, nil).Once()
	mockUserRepo.On("Deactivate", mock.Anything, testUser.ID).Return(nil).Once()

	router.HandleUpdate(ctx, update)

	mockUserRepo.AssertExpectations(t)
	// There is no chat to answer; nothing may be sent.
	mockBotClient.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
	msgHandler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything, mock.Anything)
}
