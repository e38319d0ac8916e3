package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

type GrpcServer struct {
	core *usecase.CoreUseCase
}

func NewGrpcServer(core *usecase.CoreUseCase) *GrpcServer {
	return &GrpcServer{
		core: core,
	}
}

func (s *GrpcServer) OpenAccount(ctx context.Context, req *OpenAccountRequest) (*OpenAccountResponse, error) {
	opening := domain.Zero
	if req.OpeningBalance != "" {
		m, err := domain.NewMoney(req.OpeningBalance)
		if err != nil {
			return nil, toStatus(err)
		}
		opening = m
	}
	holder := domain.Holder{
		Name:    req.HolderName,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(time.DateOnly, req.DateOfBirth)
		if err != nil {
			return nil, toStatus(domain.NewError(domain.KindInvalidHolder, "date of birth must be YYYY-MM-DD"))
		}
		holder.DateOfBirth = dob
	}
	acc, err := s.core.OpenAccount(ctx, req.AccountNumber, opening, holder)
	if err != nil {
		return nil, toStatus(err)
	}
	return &OpenAccountResponse{Account: toAccount(acc)}, nil
}

func (s *GrpcServer) GetAccount(ctx context.Context, req *GetAccountRequest) (*GetAccountResponse, error) {
	acc, err := s.core.GetAccount(ctx, req.AccountNumber)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetAccountResponse{Account: toAccount(acc)}, nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *DepositRequest) (*TransactionResponse, error) {
	amount, err := domain.NewMoney(req.Amount)
	if err != nil {
		return softFailure(err, nil), nil
	}
	rec, err := s.core.Deposit(ctx, req.AccountNumber, amount, req.Description)
	return s.transactionResponse(ctx, rec, err, req.AccountNumber)
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *WithdrawRequest) (*TransactionResponse, error) {
	amount, err := domain.NewMoney(req.Amount)
	if err != nil {
		return softFailure(err, nil), nil
	}
	rec, err := s.core.Withdraw(ctx, req.AccountNumber, amount, req.Description)
	return s.transactionResponse(ctx, rec, err, req.AccountNumber)
}

func (s *GrpcServer) Transfer(ctx context.Context, req *TransferRequest) (*TransactionResponse, error) {
	amount, err := domain.NewMoney(req.Amount)
	if err != nil {
		return softFailure(err, nil), nil
	}
	rec, err := s.core.Transfer(ctx, req.FromAccountNumber, req.ToAccountNumber, amount, req.Description)
	return s.transactionResponse(ctx, rec, err, req.FromAccountNumber)
}

func (s *GrpcServer) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
	balance, err := s.core.Balance(ctx, req.AccountNumber)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetBalanceResponse{
		AccountNumber: req.AccountNumber,
		Balance:       balance.String(),
	}, nil
}

func (s *GrpcServer) GetHistory(ctx context.Context, req *GetHistoryRequest) (*GetHistoryResponse, error) {
	records, err := s.core.History(ctx, req.AccountNumber)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &GetHistoryResponse{Transactions: make([]*Transaction, 0, len(records))}
	for _, rec := range records {
		resp.Transactions = append(resp.Transactions, toTransaction(rec))
	}
	return resp, nil
}

// transactionResponse 組裝存提轉的回應
// 儲存層錯誤回傳 gRPC status，其餘業務錯誤為 Soft Failure
func (s *GrpcServer) transactionResponse(ctx context.Context, rec *domain.TransactionRecord, err error, balanceAccount string) (*TransactionResponse, error) {
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindStoreUnavailable, domain.KindUnknown:
			return nil, toStatus(err)
		}
		return softFailure(err, rec), nil
	}

	// [Optional] 取得最新餘額 (Best Effort)
	resp := &TransactionResponse{
		Success:     true,
		Transaction: toTransaction(rec),
	}
	if balance, err := s.core.Balance(ctx, balanceAccount); err == nil {
		resp.CurrentBalance = balance.String()
	}
	return resp, nil
}

func softFailure(err error, rec *domain.TransactionRecord) *TransactionResponse {
	resp := &TransactionResponse{
		Success:   false,
		ErrorKind: domain.KindOf(err).String(),
		Message:   message(err),
	}
	if rec != nil {
		resp.Transaction = toTransaction(rec)
	}
	return resp
}

// message 取出給人看的錯誤訊息 (不含錯誤代碼前綴)
func message(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Err == nil {
		return de.Msg
	}
	return err.Error()
}

// toStatus 將領域錯誤對應到 gRPC status code
func toStatus(err error) error {
	var code codes.Code
	switch domain.KindOf(err) {
	case domain.KindInvalidAmount, domain.KindInvalidDestination, domain.KindInvalidAccountNumber, domain.KindInvalidHolder:
		code = codes.InvalidArgument
	case domain.KindAccountNotFound:
		code = codes.NotFound
	case domain.KindAccountAlreadyExists:
		code = codes.AlreadyExists
	case domain.KindInsufficientFunds, domain.KindPreconditionFailed:
		code = codes.FailedPrecondition
	case domain.KindStoreUnavailable:
		code = codes.Unavailable
	default:
		if errors.Is(err, context.Canceled) {
			code = codes.Canceled
		} else if errors.Is(err, context.DeadlineExceeded) {
			code = codes.DeadlineExceeded
		} else {
			code = codes.Internal
		}
	}
	return status.Error(code, err.Error())
}

func toAccount(acc *domain.Account) *Account {
	out := &Account{
		AccountNumber: acc.AccountNumber,
		HolderName:    acc.Holder.Name,
		Phone:         acc.Holder.Phone,
		Address:       acc.Holder.Address,
		Balance:       acc.Balance.String(),
		CreatedAt:     acc.CreatedAt,
	}
	if !acc.Holder.DateOfBirth.IsZero() {
		out.DateOfBirth = acc.Holder.DateOfBirth.Format(time.DateOnly)
	}
	return out
}

func toTransaction(rec *domain.TransactionRecord) *Transaction {
	return &Transaction{
		ID:          rec.ID,
		RefID:       rec.RefID.String(),
		Type:        rec.Type.String(),
		Amount:      rec.Amount.String(),
		FromAccount: rec.FromAccount,
		ToAccount:   rec.ToAccount,
		Status:      rec.Status.String(),
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt,
	}
}

var _ LedgerServiceServer = (*GrpcServer)(nil)
