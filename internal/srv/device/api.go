package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jypelle/mkbdstatus/apimodel"
	"github.com/jypelle/mkbdstatus/internal/srv/config"
	"github.com/jypelle/mkbdstatus/internal/srv/event"
	"github.com/jypelle/mkbdstatus/internal/srv/status"
	"github.com/jypelle/mkbdstatus/internal/tool"
	"github.com/sirupsen/logrus"
)

// StatusProvider exposes the current status and animation state.
type StatusProvider interface {
	Status() (status.StatusState, status.AnimationState)
}

type Api struct {
	eventChannel chan event.ApiEvent

	router    *mux.Router
	apiRouter *mux.Router
	server    *http.Server

	config   *config.ServerConfig
	provider StatusProvider
}

func NewApi(config *config.ServerConfig, provider StatusProvider) *Api {
	api := Api{
		config:       config,
		provider:     provider,
		eventChannel: make(chan event.ApiEvent),
	}

	api.router = mux.NewRouter().StrictSlash(false)

	// API Routes
	api.apiRouter = api.router.PathPrefix("/api").Subrouter()
	api.apiRouter.NotFoundHandler = http.HandlerFunc(ErrorNotFoundAction)
	api.apiRouter.MethodNotAllowedHandler = http.HandlerFunc(ErrorMethodNotAllowedAction)

	// Auth middleware
	api.apiRouter.Use(
		func(handler http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer func() {
					if rec := recover(); rec != nil {
						logrus.Warningf("recovered from panic : [%v] - stack trace : \n [%s]", rec, debug.Stack())
						strMessage := fmt.Sprintf("%v", rec)
						GlobalErrorAction(w, strMessage, http.StatusInternalServerError)
					}
				}()

				// Check API Key
				apiKey := r.Header.Get("x-api-key")
				if apiKey != config.ServerParam.ApiParam.ApiKey {
					ErrorStatusAction(w, r, http.StatusForbidden)
					return
				}

				logrus.Debugf("PATH: %s %s", r.Host, r.URL.Path)

				handler.ServeHTTP(w, r)
			})
		})

	// Create server check endpoint
	api.apiRouter.HandleFunc("/is_alive",
		func(w http.ResponseWriter, r *http.Request) {
			ErrorStatusAction(w, r, http.StatusOK)
		}).Methods("GET")
	api.apiRouter.HandleFunc("/status",
		func(w http.ResponseWriter, r *http.Request) {
			state, anim := api.provider.Status()
			response := apimodel.StatusResponse{
				BatteryLevel: state.BatteryLevel,
				UsbConnected: state.UsbConnected,
				Animating:    anim.IsAnimating,
				Frame:        anim.CurrentFrame,
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(response)
		}).Methods("GET")
	api.apiRouter.HandleFunc("/display/switch",
		func(w http.ResponseWriter, r *http.Request) {
			err := api.send(event.ApiEventDisplaySwitchData{})
			if err == nil {
				ErrorStatusAction(w, r, http.StatusOK)
			} else {
				GlobalErrorAction(w, err.Error(), http.StatusServiceUnavailable)
			}
		}).Methods("POST")
	api.apiRouter.HandleFunc("/simulation/battery/{level}",
		func(w http.ResponseWriter, r *http.Request) {
			if !api.config.SimulationMode {
				apimodel.SimulationOnlyErrorMessage.SendError(w)
				return
			}
			level, err := strconv.ParseInt(mux.Vars(r)["level"], 10, 0)
			if err != nil || level < 0 || level > 100 {
				apimodel.WrongParametersErrorMessage.SendError(w)
				return
			}
			api.reply(w, r, api.send(event.ApiEventSimulateBatteryData{Level: int(level)}))
		}).Methods("POST")
	api.apiRouter.HandleFunc("/simulation/usb/{state}",
		func(w http.ResponseWriter, r *http.Request) {
			if !api.config.SimulationMode {
				apimodel.SimulationOnlyErrorMessage.SendError(w)
				return
			}
			var powered bool
			switch mux.Vars(r)["state"] {
			case "on":
				powered = true
			case "off":
				powered = false
			default:
				apimodel.WrongParametersErrorMessage.SendError(w)
				return
			}
			api.reply(w, r, api.send(event.ApiEventSimulateUsbData{Powered: powered}))
		}).Methods("POST")

	// Tell the browser that it's OK for JS to communicate with the server
	headersOk := handlers.AllowedHeaders([]string{"Authorization", "x-api-key"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})

	api.server = &http.Server{
		Addr:         ":" + strconv.FormatInt(config.ServerParam.ApiParam.SslPort, 10),
		Handler:      handlers.CompressHandler(handlers.CORS(originsOk, headersOk, methodsOk)(api.router)),
		ReadTimeout:  time.Second * 240,
		WriteTimeout: time.Second * 240,
		IdleTimeout:  time.Second * 240,
	}

	return &api
}

// Handler is the complete https handler, middlewares included.
func (d *Api) Handler() http.Handler {
	return d.server.Handler
}

func (d *Api) Start() {
	logrus.Infof("Start api device")

	existServerCert, err := tool.IsFileExists(d.selfSignedCertFilename())
	if err != nil {
		logrus.Fatalf("Unable to access %s: %v\n", d.selfSignedCertFilename(), err)
	}

	existServerKey, err := tool.IsFileExists(d.selfSignedKeyFilename())
	if err != nil {
		logrus.Fatalf("Unable to access %s: %v\n", d.selfSignedKeyFilename(), err)
	}

	if !existServerCert || !existServerKey {
		logrus.Info("Missing cert and key files, trying to generate them...")
		err = tool.GenerateTlsCertificate(
			"jypelle",
			"Mkbd Status Server",
			d.selfSignedKeyFilename(),
			d.selfSignedCertFilename(),
			[]string{})
		if err != nil {
			logrus.Fatalf("Unable to generate cert and key files : %v\n", err)
		}
		logrus.Info("Self-signed cert and key files generated")
	}

	// Launch https server
	go func() {
		err := d.server.ListenAndServeTLS(d.selfSignedCertFilename(), d.selfSignedKeyFilename())
		if err != nil && err != http.ErrServerClosed {
			logrus.Error(err)
		}
	}()
}

func (d *Api) StopSendingEvent() {
	logrus.Infof("Stop api device")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.server.Shutdown(ctx)
}

func (d *Api) EventChannel() chan event.ApiEvent {
	return d.eventChannel
}

// send hands the request over to the event loop and waits for its outcome.
func (d *Api) send(data interface{}) error {
	result := make(chan error)
	d.eventChannel <- event.ApiEvent{Result: result, Data: data}
	return <-result
}

func (d *Api) reply(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		ErrorStatusAction(w, r, http.StatusOK)
	case errors.Is(err, ErrNotSimulated):
		apimodel.SimulationOnlyErrorMessage.SendError(w)
	default:
		GlobalErrorAction(w, err.Error(), http.StatusInternalServerError)
	}
}

func (d *Api) selfSignedKeyFilename() string {
	return filepath.Join(d.config.ConfigDir, "key.pem")
}

func (d *Api) selfSignedCertFilename() string {
	return filepath.Join(d.config.ConfigDir, "cert.pem")
}

func ErrorNotFoundAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusNotFound)
}

func ErrorMethodNotAllowedAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusMethodNotAllowed)
}

func ErrorStatusAction(w http.ResponseWriter, r *http.Request, status int) {
	ErrorMessageAction(w, "", status)
}

func GlobalErrorAction(w http.ResponseWriter, message string, status int) {
	ErrorMessageAction(w, message, status)
}

func ErrorMessageAction(w http.ResponseWriter, title string, status int) {
	errorMessage := apimodel.ErrorMessage{
		ErrStatusCode: status,
		ErrMessage:    title,
	}
	errorMessage.SendError(w)
}
