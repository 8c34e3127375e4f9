package ledger

import (
	"context"
	"encoding/json"

	"github.com/Kampouse/fastkv-server/log"
	"github.com/tidwall/gjson"
)

const logsPath = "receipts_outcome.0.outcome.logs"

// TransactionResult is the outcome of a deferred invocation. A failed
// transaction is a valid outcome with Success set to false
type TransactionResult struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result"`
	Error   *string     `json:"error"`
}

// Ledger looks up transactions
type Ledger interface {
	Transaction(ctx context.Context, txHash, signer string) (json.RawMessage, error)
}

type ResolverServices struct {
	Logger log.Logger
	Ledger Ledger
}

type ResolverProps struct {
	// Signer is the account used for transaction lookups when the
	// caller does not provide one
	Signer string

	// Recognizers are tried in order against every log line. When
	// empty DefaultRecognizers is used
	Recognizers []Recognizer
}

// Resolver reconstructs the result of a deferred invocation from the
// logs of its transaction
type Resolver struct {
	ledger      Ledger
	logger      log.Logger
	signer      string
	recognizers []Recognizer
}

// NewResolver creates a new Resolver
func NewResolver(services *ResolverServices, props *ResolverProps) *Resolver {
	if services.Logger == nil {
		panic("Logger must be set")
	}

	if services.Ledger == nil {
		panic("Ledger must be set")
	}

	recognizers := props.Recognizers
	if len(recognizers) == 0 {
		recognizers = DefaultRecognizers()
	}

	return &Resolver{
		ledger:      services.Ledger,
		logger:      services.Logger.ForClass("ledger", "Resolver"),
		signer:      props.Signer,
		recognizers: recognizers,
	}
}

// Resolve returns the result of the transaction. The logs of the first
// receipt outcome are scanned in order and the first line that one of
// the recognizers matches gives the result. When no line matches the
// raw ledger result is returned. If signer is empty the configured
// signer is used
func (r *Resolver) Resolve(ctx context.Context, txHash, signer string) (TransactionResult, error) {
	if len(signer) == 0 {
		signer = r.signer
	}

	raw, err := r.ledger.Transaction(ctx, txHash, signer)
	if err != nil {
		if txErr, ok := err.(TxError); ok {
			text := txErr.Text
			return TransactionResult{Success: false, Error: &text}, nil
		}

		return TransactionResult{}, err
	}

	for _, line := range gjson.GetBytes(raw, logsPath).Array() {
		if line.Type != gjson.String {
			continue
		}

		obj, ok := parseObject(line.String())
		if !ok {
			continue
		}

		for _, recognizer := range r.recognizers {
			if !recognizer.Match(obj) {
				continue
			}

			if !obj.Get("key_id").Exists() {
				r.logger.Warn(ctx, "program output has no key id", log.MapFields{
					"call_type":  "ResolveMissingKeyID",
					"tx_hash":    txHash,
					"recognizer": recognizer.Name,
				})
			}

			return TransactionResult{
				Success: true,
				Result:  recognizer.Extract(obj),
			}, nil
		}
	}

	r.logger.Debug(ctx, "no program output found in transaction logs", log.MapFields{
		"call_type": "ResolveRawFallback",
		"tx_hash":   txHash,
	})

	return TransactionResult{Success: true, Result: raw}, nil
}

func parseObject(line string) (gjson.Result, bool) {
	if !gjson.Valid(line) {
		return gjson.Result{}, false
	}

	obj := gjson.Parse(line)
	return obj, obj.IsObject()
}
