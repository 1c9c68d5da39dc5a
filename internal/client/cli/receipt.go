package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/client/models"
	"github.com/dmitrijs2005/finkeeper/internal/filex"
	"github.com/dmitrijs2005/finkeeper/internal/netx"
	"github.com/spf13/cobra"
)

const maxReceiptSize = 10 << 20

// httpClient is used for presigned uploads; tests replace it.
var httpClient = &http.Client{Timeout: 60 * time.Second}

var ErrReceiptNeedsServerID = errors.New("expense has not reached the server yet, run sync first")

func (r *runner) newReceiptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Attach and fetch expense receipts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var contentType string
	upload := &cobra.Command{
		Use:   "upload <expense-id> <file>",
		Short: "Upload a receipt image and attach it to an expense",
		Args:  cobra.ExactArgs(2),
		RunE: r.run(func(ctx context.Context, a *App, args []string) error {
			return a.UploadReceipt(ctx, args[0], args[1], contentType)
		}),
	}
	upload.Flags().StringVar(&contentType, "content-type", "", "MIME type; detected from the file when empty")

	url := &cobra.Command{
		Use:   "url <receipt-key>",
		Short: "Print a temporary download link for a receipt",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(ctx context.Context, a *App, args []string) error {
			if err := a.requireOnline(ctx); err != nil {
				return err
			}
			link, err := a.api.ReceiptDownloadURL(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, link)
			return nil
		}),
	}

	cmd.AddCommand(upload, url)
	return cmd
}

// UploadReceipt stores the file through a presigned URL and records the
// object key on the expense.
func (a *App) UploadReceipt(ctx context.Context, expenseID, path, contentType string) error {
	if a.CacheEnabled() {
		expenseID = a.sync.ResolveID(ctx, expenseID)
	}
	if models.ParseRecordID(expenseID).IsLocal() {
		return ErrReceiptNeedsServerID
	}
	if err := a.requireOnline(ctx); err != nil {
		return err
	}

	body, err := filex.ReadLimited(path, maxReceiptSize)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	key, url, err := a.api.ReceiptUploadURL(ctx, expenseID, contentType)
	if err != nil {
		return err
	}
	if err := netx.UploadPresigned(ctx, httpClient, url, contentType, body); err != nil {
		return fmt.Errorf("upload receipt: %w", err)
	}

	return a.Update(ctx, models.Expenses, expenseID, map[string]any{"receipt_key": key})
}
