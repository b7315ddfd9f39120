package api

import (
	"context"
	"net/http"

	"github.com/dukerupert/shoplist/internal/model"
)

// BackupCodes returns the account's current backup codes.
func (c *Client) BackupCodes(ctx context.Context) (*model.BackupCodes, error) {
	const op = "get backup codes"
	resp, err := c.do(ctx, op, http.MethodGet, "backupcodes", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection(op, KindUnauthorized)
	}
	var data backupCodesData
	if err := resp.decode(op, &data); err != nil {
		return nil, err
	}
	if data.Has != nil && !bool(*data.Has) {
		return &model.BackupCodes{}, nil
	}
	if data.rejected() {
		return nil, &Error{Kind: KindProtocol, Op: op, Message: data.Error}
	}
	return &model.BackupCodes{Has: true, Codes: splitCodes(data.Codes)}, nil
}

// GenerateBackupCodes creates a fresh set of codes. With regenerate, any
// existing codes are invalidated.
func (c *Client) GenerateBackupCodes(ctx context.Context, regenerate bool) (*model.BackupCodes, error) {
	op, path := "generate backup codes", "backupcodes/generate"
	if regenerate {
		op, path = "regenerate backup codes", "backupcodes/regenerate"
	}
	resp, err := c.do(ctx, op, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection(op, KindConflict)
	}
	var data backupCodesData
	if err := resp.decode(op, &data); err != nil {
		return nil, err
	}
	if data.rejected() {
		return nil, &Error{Kind: KindConflict, Op: op, Message: data.Error}
	}
	return &model.BackupCodes{Has: true, Codes: splitCodes(data.Codes)}, nil
}

type backupCodeRequest struct {
	Owner    string `json:"owner"`
	Code     string `json:"code"`
	Password string `json:"password,omitempty"`
}

func (c *Client) backupCode(ctx context.Context, op, path string, req backupCodeRequest) error {
	resp, err := c.do(ctx, op, http.MethodPost, path, req)
	if err != nil {
		return err
	}
	if !resp.ok() {
		e := resp.rejection(op, KindInvalidCode)
		e.Kind = codeFailureKind(e.Message)
		return e
	}
	var data backupCodesData
	if err := resp.decode(op, &data); err != nil {
		return err
	}
	if data.rejected() || data.Error != "" || (data.OK != nil && !bool(*data.OK)) {
		return &Error{Kind: codeFailureKind(data.Error), Op: op, Message: data.Error}
	}
	return nil
}

// VerifyBackupCode checks a backup code for owner without consuming it.
func (c *Client) VerifyBackupCode(ctx context.Context, owner, code string) error {
	return c.backupCode(ctx, "verify backup code", "backupcodes", backupCodeRequest{Owner: owner, Code: code})
}

// ResetPasswordWithBackupCode consumes a backup code and sets a new password.
func (c *Client) ResetPasswordWithBackupCode(ctx context.Context, owner, code, password string) error {
	return c.backupCode(ctx, "reset password", "backupcodes/changepassword",
		backupCodeRequest{Owner: owner, Code: code, Password: password})
}
