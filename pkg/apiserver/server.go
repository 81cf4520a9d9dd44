package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/primsh/prim.sh-sub000/pkg/backend"
	"github.com/primsh/prim.sh-sub000/pkg/version"
)

type apiServer struct {
	ctx  context.Context
	log  *logrus.Entry
	port int
}

func NewAPIServer(ctx context.Context, log *logrus.Entry, port int) *apiServer {
	return &apiServer{
		ctx:  ctx,
		log:  log,
		port: port,
	}
}

func (a *apiServer) Start(backend backend.Backend) error {
	logrus.Infof("Version: %s", version.Get())

	router := a.buildRouter(newHandler(backend))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: ghandlers.CORS()(router),
	}

	go func() {
		a.log.WithField("port", a.port).Info("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Fatalf("listen: %s\n", err)
		}
	}()

	<-a.ctx.Done()

	a.log.Info("shutting down the api server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.WithError(err).Error("unable to shutdown the api server gracefully")
		return err
	}

	return nil
}

func (a *apiServer) buildRouter(h *handler) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(loggingMiddleware(a.log))

	// When functioning properly, these routes return the running version
	router.Path("/").HandlerFunc(h.root)
	router.Path("/healthz").HandlerFunc(h.root)

	// Caller identity comes from the payment proxy on every /v1 route; the
	// recovery flow additionally authorizes by token inside the backend.
	api := router.PathPrefix("/v1").Subrouter()
	api.Use(callerAuthMiddleware)

	api.Path("/quotes").Methods("POST").HandlerFunc(h.quote)

	api.Path("/registrations").Methods("POST").HandlerFunc(h.register)
	api.Path("/registrations").Methods("GET").HandlerFunc(h.listRegistrations)
	api.Path("/registrations/recover").Methods("POST").HandlerFunc(h.recover)
	api.Path("/registrations/{domain}").Methods("GET").HandlerFunc(h.getRegistration)
	api.Path("/registrations/{domain}/configure-ns").Methods("POST").HandlerFunc(h.configureNameservers)

	api.Path("/zones").Methods("POST").HandlerFunc(h.createZone)
	api.Path("/zones").Methods("GET").HandlerFunc(h.listZones)

	api.Path("/zones/{zone}").Methods("GET").HandlerFunc(h.getZone)
	api.Path("/zones/{zone}").Methods("DELETE").HandlerFunc(h.deleteZone)

	zones := api.PathPrefix("/zones/{zone}").Subrouter()
	zones.Path("/activate").Methods("POST").HandlerFunc(h.activateZone)
	zones.Path("/verify").Methods("POST").HandlerFunc(h.verifyZone)

	zones.Path("/records").Methods("POST").HandlerFunc(h.createRecord)
	zones.Path("/records").Methods("GET").HandlerFunc(h.listRecords)
	zones.Path("/records/batch").Methods("POST").HandlerFunc(h.batchRecords)
	zones.Path("/records/{record}").Methods("PUT").HandlerFunc(h.updateRecord)
	zones.Path("/records/{record}").Methods("DELETE").HandlerFunc(h.deleteRecord)

	// Note: this allows not found urls to be logged via the middleware
	// It **HAS** to be defined after all other paths are defined.
	router.NotFoundHandler = router.NewRoute().HandlerFunc(http.NotFound).GetHandler()

	return router
}
