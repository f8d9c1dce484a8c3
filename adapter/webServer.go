package adapter

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	models "github.com/ironfinance/lottery-adapter/data"
	"github.com/ironfinance/lottery-adapter/interaction"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type webServer struct {
	router  *gin.Engine
	adapter *adapter
}

func NewWebServer(adapter *adapter) (*webServer, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	ws := &webServer{
		router:  router,
		adapter: adapter,
	}
	ws.registerRoutes()

	return ws, nil
}

func (ws *webServer) registerRoutes() {
	ws.router.GET("/info", ws.processInfoRequest)
	ws.router.GET("/current-round", ws.processCurrentRoundRequest)
	ws.router.GET("/rounds/:id", ws.processRoundRequest)
	ws.router.GET("/rounds/:id/settlement", ws.processSettlementRequest)
	ws.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(ws.adapter.registry, promhttp.HandlerOpts{})))
}

func (ws *webServer) Run(port string) error {
	log.Info("starting web server", "port", port)
	return ws.router.Run(port)
}

func (ws *webServer) processInfoRequest(c *gin.Context) {
	info, err := ws.adapter.HandleInfo(c.Request.Context())
	if err != nil {
		errResponse(c, http.StatusServiceUnavailable, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (ws *webServer) processCurrentRoundRequest(c *gin.Context) {
	response, err := ws.adapter.HandleCurrentRound(c.Request.Context())
	if err != nil {
		errResponse(c, http.StatusServiceUnavailable, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (ws *webServer) processRoundRequest(c *gin.Context) {
	roundID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errResponse(c, http.StatusBadRequest, errors.Wrap(err, "round id"))
		return
	}

	response, err := ws.adapter.HandleRound(roundID)
	if err != nil {
		errResponse(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (ws *webServer) processSettlementRequest(c *gin.Context) {
	roundID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		errResponse(c, http.StatusBadRequest, errors.Wrap(err, "round id"))
		return
	}
	account, err := interaction.ParseAccount(c.Query("account"))
	if err != nil {
		errResponse(c, http.StatusBadRequest, err)
		return
	}

	response, err := ws.adapter.HandleSettlement(c.Request.Context(), roundID, account)
	if err != nil {
		errResponse(c, statusFor(err), err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRoundNotWatched):
		return http.StatusNotFound
	case errors.Is(err, ErrSnapshotUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func errResponse(c *gin.Context, errCode int, err error) {
	c.JSON(errCode, models.ErrorResponse{
		Error:      err.Error(),
		StatusCode: errCode,
	})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
