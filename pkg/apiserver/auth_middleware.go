package apiserver

import (
	"context"
	"net/http"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
)

type contextKey string

const callerKey contextKey = "caller"

// payerHeader is set by the payment proxy in front of this server once a
// request's payment has been settled; its value is the payer's wallet
// address. This server never sees the payment protocol itself.
const payerHeader = "X-Payer-Address"

func callerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := r.Header.Get(payerHeader)
		if caller == "" {
			writeAPIError(w, apierror.New(http.StatusUnauthorized, apierror.CodeForbidden, "missing payer identity"))
			return
		}

		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFromContext(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey).(string)
	return caller
}
