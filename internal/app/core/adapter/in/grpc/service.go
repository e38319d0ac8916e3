package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"

	ledgergrpc "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
)

// ServiceName gRPC 服務名稱，訊息以 JSON codec 傳輸
const ServiceName = "ledger.v1.LedgerService"

const (
	LedgerService_OpenAccount_FullMethodName = "/" + ServiceName + "/OpenAccount"
	LedgerService_GetAccount_FullMethodName  = "/" + ServiceName + "/GetAccount"
	LedgerService_Deposit_FullMethodName     = "/" + ServiceName + "/Deposit"
	LedgerService_Withdraw_FullMethodName    = "/" + ServiceName + "/Withdraw"
	LedgerService_Transfer_FullMethodName    = "/" + ServiceName + "/Transfer"
	LedgerService_GetBalance_FullMethodName  = "/" + ServiceName + "/GetBalance"
	LedgerService_GetHistory_FullMethodName  = "/" + ServiceName + "/GetHistory"
)

// 金額一律以十進位字串傳遞，例: "100.00"

// 日期一律為 "YYYY-MM-DD"

type OpenAccountRequest struct {
	// AccountNumber 空字串時由系統產生
	AccountNumber  string `json:"account_number,omitempty"`
	OpeningBalance string `json:"opening_balance"`
	HolderName     string `json:"holder_name,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
}

type OpenAccountResponse struct {
	Account *Account `json:"account"`
}

type GetAccountRequest struct {
	AccountNumber string `json:"account_number"`
}

type GetAccountResponse struct {
	Account *Account `json:"account"`
}

type Account struct {
	AccountNumber string    `json:"account_number"`
	HolderName    string    `json:"holder_name,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	DateOfBirth   string    `json:"date_of_birth,omitempty"`
	Balance       string    `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
}

type DepositRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
	Description   string `json:"description,omitempty"`
}

type WithdrawRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
	Description   string `json:"description,omitempty"`
}

type TransferRequest struct {
	FromAccountNumber string `json:"from_account_number"`
	ToAccountNumber   string `json:"to_account_number"`
	Amount            string `json:"amount"`
	Description       string `json:"description,omitempty"`
}

// TransactionResponse 存款、提款、轉帳的共同回應
//
// 業務錯誤為 Soft Failure: Success=false，ErrorKind 為穩定的錯誤代碼
// 餘額不足時 Transaction 帶有已寫入的 FAILED 紀錄
type TransactionResponse struct {
	Success     bool         `json:"success"`
	ErrorKind   string       `json:"error_kind,omitempty"`
	Message     string       `json:"message,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
	// 轉帳/提款回傳 From 的餘額，存款回傳 To 的餘額
	CurrentBalance string `json:"current_balance,omitempty"`
}

type Transaction struct {
	ID          int64     `json:"id"`
	RefID       string    `json:"ref_id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	FromAccount string    `json:"from_account,omitempty"`
	ToAccount   string    `json:"to_account,omitempty"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type GetBalanceRequest struct {
	AccountNumber string `json:"account_number"`
}

type GetBalanceResponse struct {
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
}

type GetHistoryRequest struct {
	AccountNumber string `json:"account_number"`
}

type GetHistoryResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

// LedgerServiceServer 服務端介面
type LedgerServiceServer interface {
	OpenAccount(context.Context, *OpenAccountRequest) (*OpenAccountResponse, error)
	GetAccount(context.Context, *GetAccountRequest) (*GetAccountResponse, error)
	Deposit(context.Context, *DepositRequest) (*TransactionResponse, error)
	Withdraw(context.Context, *WithdrawRequest) (*TransactionResponse, error)
	Transfer(context.Context, *TransferRequest) (*TransactionResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	GetHistory(context.Context, *GetHistoryRequest) (*GetHistoryResponse, error)
}

// RegisterLedgerServiceServer 註冊服務
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}

// unaryHandler 解碼請求並經過 interceptor 呼叫對應方法
func unaryHandler[Req, Resp any](fullMethod string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var LedgerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "OpenAccount", Handler: unaryHandler(LedgerService_OpenAccount_FullMethodName, LedgerServiceServer.OpenAccount)},
		{MethodName: "GetAccount", Handler: unaryHandler(LedgerService_GetAccount_FullMethodName, LedgerServiceServer.GetAccount)},
		{MethodName: "Deposit", Handler: unaryHandler(LedgerService_Deposit_FullMethodName, LedgerServiceServer.Deposit)},
		{MethodName: "Withdraw", Handler: unaryHandler(LedgerService_Withdraw_FullMethodName, LedgerServiceServer.Withdraw)},
		{MethodName: "Transfer", Handler: unaryHandler(LedgerService_Transfer_FullMethodName, LedgerServiceServer.Transfer)},
		{MethodName: "GetBalance", Handler: unaryHandler(LedgerService_GetBalance_FullMethodName, LedgerServiceServer.GetBalance)},
		{MethodName: "GetHistory", Handler: unaryHandler(LedgerService_GetHistory_FullMethodName, LedgerServiceServer.GetHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/ledger/v1/ledger.proto",
}

// LedgerServiceClient 客戶端
type LedgerServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerServiceClient(cc grpc.ClientConnInterface) *LedgerServiceClient {
	return &LedgerServiceClient{cc: cc}
}

func (c *LedgerServiceClient) OpenAccount(ctx context.Context, in *OpenAccountRequest, opts ...grpc.CallOption) (*OpenAccountResponse, error) {
	out := new(OpenAccountResponse)
	if err := c.invoke(ctx, LedgerService_OpenAccount_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*GetAccountResponse, error) {
	out := new(GetAccountResponse)
	if err := c.invoke(ctx, LedgerService_GetAccount_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) Deposit(ctx context.Context, in *DepositRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	if err := c.invoke(ctx, LedgerService_Deposit_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) Withdraw(ctx context.Context, in *WithdrawRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	if err := c.invoke(ctx, LedgerService_Withdraw_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) Transfer(ctx context.Context, in *TransferRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	out := new(TransactionResponse)
	if err := c.invoke(ctx, LedgerService_Transfer_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) GetBalance(ctx context.Context, in *GetBalanceRequest, opts ...grpc.CallOption) (*GetBalanceResponse, error) {
	out := new(GetBalanceResponse)
	if err := c.invoke(ctx, LedgerService_GetBalance_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) GetHistory(ctx context.Context, in *GetHistoryRequest, opts ...grpc.CallOption) (*GetHistoryResponse, error) {
	out := new(GetHistoryResponse)
	if err := c.invoke(ctx, LedgerService_GetHistory_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LedgerServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(ledgergrpc.CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, callOpts...)
}
