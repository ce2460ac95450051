package http

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/CarrieMorar/FHELegalConsultation/api"
	"github.com/CarrieMorar/FHELegalConsultation/config"
	"github.com/CarrieMorar/FHELegalConsultation/constants"
	"github.com/CarrieMorar/FHELegalConsultation/consultations"
	"github.com/CarrieMorar/FHELegalConsultation/events"
	"github.com/CarrieMorar/FHELegalConsultation/logger"
	"github.com/CarrieMorar/FHELegalConsultation/service"
	"github.com/CarrieMorar/FHELegalConsultation/utils"
)

type authTokenRequest struct {
	Identity          string  `json:"identity"`
	Role              string  `json:"role"`
	CoordinatorSecret string  `json:"coordinatorSecret,omitempty"`
	TokenExpiryDays   *uint64 `json:"tokenExpiryDays"`
}

type authTokenResponse struct {
	Token string `json:"token"`
}

type jwtCustomClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type HttpService struct {
	api            api.API
	cfg            config.Config
	eventPublisher events.EventPublisher
	db             *gorm.DB
}

func NewHttpService(svc service.Service, eventPublisher events.EventPublisher) *HttpService {
	return &HttpService{
		api:            api.NewAPI(svc.GetDB(), svc.GetConfig(), svc.GetConsultationsService(), svc.GetOracleClient()),
		cfg:            svc.GetConfig(),
		eventPublisher: eventPublisher,
		db:             svc.GetDB(),
	}
}

func (httpSvc *HttpService) RegisterSharedRoutes(e *echo.Echo) {
	e.HideBanner = true

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "no-referrer",
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogHost:      true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			logger.HttpLogger.Info().
				Str("uri", values.URI).
				Int("status", values.Status).
				Str("remote_ip", values.RemoteIP).
				Str("user_agent", values.UserAgent).
				Str("host", values.Host).
				Str("request_id", values.RequestID).
				Msg("handled API request")
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/api/info", httpSvc.infoHandler)

	// allow one token request per second
	tokenRateLimiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(1))
	e.POST("/api/auth/token", httpSvc.authTokenHandler, tokenRateLimiter)

	// restricted routes
	jwtConfig := echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(jwtCustomClaims)
		},
		KeyFunc: func(token *jwt.Token) (interface{}, error) {
			secret, err := httpSvc.cfg.GetJWTSecret()
			if err != nil {
				return nil, err
			}
			return []byte(secret), nil
		},
		TokenLookup: "header:Authorization:Bearer ,query:token",
	}

	// routes accessible to any authenticated identity
	apiGroup := e.Group("/api")
	apiGroup.Use(echojwt.WithConfig(jwtConfig))

	apiGroup.POST("/consultations", httpSvc.submitConsultationHandler)
	apiGroup.GET("/consultations", httpSvc.listConsultationsHandler)
	apiGroup.GET("/consultations/:id", httpSvc.getConsultationHandler)
	apiGroup.GET("/consultations/:id/refund-eligibility", httpSvc.refundEligibilityHandler)
	apiGroup.POST("/consultations/:id/refund-request", httpSvc.requestRefundHandler)
	apiGroup.POST("/consultations/:id/rating", httpSvc.rateLawyerHandler)
	apiGroup.GET("/clients/:clientId/profile", httpSvc.clientProfileHandler)
	apiGroup.POST("/lawyers", httpSvc.registerLawyerHandler)
	apiGroup.GET("/lawyers/:id", httpSvc.getLawyerHandler)

	// lawyer-only routes
	lawyerApiGroup := e.Group("/api")
	lawyerApiGroup.Use(echojwt.WithConfig(jwtConfig))
	lawyerApiGroup.Use(httpSvc.requireRole(constants.ROLE_LAWYER))

	lawyerApiGroup.POST("/consultations/:id/response", httpSvc.respondToConsultationHandler)
	lawyerApiGroup.POST("/withdrawals", httpSvc.requestWithdrawalHandler)

	// coordinator-only routes
	coordinatorApiGroup := e.Group("/api")
	coordinatorApiGroup.Use(echojwt.WithConfig(jwtConfig))
	coordinatorApiGroup.Use(httpSvc.requireRole(constants.ROLE_COORDINATOR))

	coordinatorApiGroup.POST("/consultations/:id/assign", httpSvc.assignConsultationHandler)
	coordinatorApiGroup.POST("/consultations/:id/refund", httpSvc.processRefundHandler)
	coordinatorApiGroup.POST("/consultations/:id/timeout", httpSvc.markTimedOutHandler)
	coordinatorApiGroup.POST("/lawyers/:id/verify", httpSvc.verifyLawyerHandler)
	coordinatorApiGroup.POST("/lawyers/:id/active", httpSvc.setLawyerActiveHandler)
	coordinatorApiGroup.GET("/log", httpSvc.getLogOutputHandler)
}

func (httpSvc *HttpService) requireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Get("user").(*jwt.Token)
			claims := token.Claims.(*jwtCustomClaims)

			if claims.Role == role {
				return next(c)
			}

			return c.JSON(http.StatusForbidden, api.ErrorResponse{
				Code:    constants.ERROR_UNAUTHORIZED,
				Message: fmt.Sprintf("This operation requires the %s role", role),
			})
		}
	}
}

func (httpSvc *HttpService) infoHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.GetInfo(c.Request().Context())
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) authTokenHandler(c echo.Context) error {
	var tokenRequest authTokenRequest
	if err := c.Bind(&tokenRequest); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	if tokenRequest.Identity == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: "Identity field is required",
		})
	}

	if !slices.Contains([]string{constants.ROLE_CLIENT, constants.ROLE_LAWYER, constants.ROLE_COORDINATOR}, tokenRequest.Role) {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: "Role field is unknown",
		})
	}

	if tokenRequest.Role == constants.ROLE_COORDINATOR {
		coordinatorSecret := httpSvc.cfg.GetEnv().CoordinatorSecret
		if coordinatorSecret == "" || tokenRequest.CoordinatorSecret != coordinatorSecret {
			return c.JSON(http.StatusUnauthorized, api.ErrorResponse{
				Code:    constants.ERROR_UNAUTHORIZED,
				Message: "Invalid coordinator secret",
			})
		}
	}

	token, err := httpSvc.createJWT(tokenRequest.Identity, tokenRequest.Role, tokenRequest.TokenExpiryDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Code:    constants.ERROR_INTERNAL,
			Message: fmt.Sprintf("Failed to create session: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, &authTokenResponse{
		Token: token,
	})
}

func (httpSvc *HttpService) createJWT(identity string, role string, tokenExpiryDays *uint64) (string, error) {
	expiryDays := uint64(30)
	if tokenExpiryDays != nil && *tokenExpiryDays > 0 {
		expiryDays = *tokenExpiryDays
	}

	claims := &jwtCustomClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expiryDays) * 24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	secret, err := httpSvc.cfg.GetJWTSecret()
	if err != nil {
		return "", err
	}
	return token.SignedString([]byte(secret))
}

func (httpSvc *HttpService) submitConsultationHandler(c echo.Context) error {
	var submitRequest api.SubmitConsultationRequest
	if err := c.Bind(&submitRequest); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	// the ledger identity is always the authenticated one
	submitRequest.ClientID = tokenSubject(c)

	consultation, err := httpSvc.api.SubmitConsultation(c.Request().Context(), &submitRequest)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, consultation)
}

func (httpSvc *HttpService) listConsultationsHandler(c echo.Context) error {
	limit := uint64(20)
	if limitParam, err := strconv.ParseUint(c.QueryParam("limit"), 10, 64); err == nil {
		limit = limitParam
	}
	offset := uint64(0)
	if offsetParam, err := strconv.ParseUint(c.QueryParam("offset"), 10, 64); err == nil {
		offset = offsetParam
	}

	var clientID *string
	if clientIDParam := c.QueryParam("clientId"); clientIDParam != "" {
		clientID = &clientIDParam
	}

	responseBody, err := httpSvc.api.ListConsultations(c.Request().Context(), clientID, limit, offset)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	if status := c.QueryParam("status"); status != "" {
		responseBody.Consultations = utils.Filter(responseBody.Consultations, func(consultation api.Consultation) bool {
			return consultation.Status == status
		})
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) getConsultationHandler(c echo.Context) error {
	consultationID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	consultation, err := httpSvc.api.GetConsultation(c.Request().Context(), consultationID)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, consultation)
}

func (httpSvc *HttpService) assignConsultationHandler(c echo.Context) error {
	consultationID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var assignRequest api.AssignConsultationRequest
	if err := c.Bind(&assignRequest); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	err = httpSvc.api.AssignConsultation(c.Request().Context(), consultationID, &assignRequest)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) respondToConsultationHandler(c echo.Context) error {
	consultationID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var respondRequest api.RespondToConsultationRequest
	if err := c.Bind(&respondRequest); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	respondRequest.LawyerIdentity = tokenSubject(c)

	err = httpSvc.api.RespondToConsultation(c.Request().Context(), consultationID, &respondRequest)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) rateLawyerHandler(c echo.Context) error {
	consultationID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var rateRequest api.RateLawyerRequest
	if err := c.Bind(&rateRequest); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	rateRequest.ClientID = tokenSubject(c)

	err = httpSvc.api.RateLawyer(c.Request().Context(), consultationID, &rateRequest)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) refundEligibilityHandler(c echo.Context) error {
	consultationID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	responseBody, err := httpSvc.api.GetRefundEligibility(c.Request().Context(), consultationID)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) requestRefundHandler(c echo.Context) error {
	consultationID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	err = httpSvc.api.RequestRefund(c.Request().Context(), consultationID)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) processRefundHandler(c echo.Context) error {
	consultationID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var processRequest api.ProcessRefundRequest
	if err := c.Bind(&processRequest); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	err = httpSvc.api.ProcessRefund(c.Request().Context(), consultationID, &processRequest)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) markTimedOutHandler(c echo.Context) error {
	consultationID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	err = httpSvc.api.MarkTimedOut(c.Request().Context(), consultationID)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) clientProfileHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.GetClientProfile(c.Request().Context(), c.Param("clientId"))
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) registerLawyerHandler(c echo.Context) error {
	var registerRequest api.RegisterLawyerRequest
	if err := c.Bind(&registerRequest); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	registerRequest.Identity = tokenSubject(c)

	lawyer, err := httpSvc.api.RegisterLawyer(c.Request().Context(), &registerRequest)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, lawyer)
}

func (httpSvc *HttpService) getLawyerHandler(c echo.Context) error {
	lawyerID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	lawyer, err := httpSvc.api.GetLawyer(c.Request().Context(), lawyerID)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, lawyer)
}

func (httpSvc *HttpService) verifyLawyerHandler(c echo.Context) error {
	lawyerID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	err = httpSvc.api.VerifyLawyer(c.Request().Context(), lawyerID)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) setLawyerActiveHandler(c echo.Context) error {
	lawyerID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var activeRequest api.SetLawyerActiveRequest
	if err := c.Bind(&activeRequest); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	err = httpSvc.api.SetLawyerActive(c.Request().Context(), lawyerID, &activeRequest)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) requestWithdrawalHandler(c echo.Context) error {
	err := httpSvc.api.RequestWithdrawal(c.Request().Context(), &api.RequestWithdrawalRequest{
		LawyerIdentity: tokenSubject(c),
	})
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) getLogOutputHandler(c echo.Context) error {
	var getLogRequest api.GetLogOutputRequest
	if err := c.Bind(&getLogRequest); err != nil {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Code:    constants.ERROR_INVALID_INPUT,
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	responseBody, err := httpSvc.api.GetLogOutput(c.Request().Context(), &getLogRequest)
	if err != nil {
		return httpSvc.returnErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) returnErrorResponse(c echo.Context, err error) error {
	code := consultations.ErrorCode(err)
	return c.JSON(httpStatusForErrorCode(code), api.ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func httpStatusForErrorCode(code string) int {
	switch code {
	case constants.ERROR_NOT_FOUND:
		return http.StatusNotFound
	case constants.ERROR_UNAUTHORIZED:
		return http.StatusForbidden
	case constants.ERROR_INVALID_INPUT:
		return http.StatusBadRequest
	case constants.ERROR_RATE_LIMITED:
		return http.StatusTooManyRequests
	case constants.ERROR_INVALID_STATE_TRANSITION, constants.ERROR_DEADLINE_EXCEEDED:
		return http.StatusConflict
	case constants.ERROR_PROOF_INVALID:
		return http.StatusUnprocessableEntity
	case constants.ERROR_TRANSFER_FAILED:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func tokenSubject(c echo.Context) string {
	token := c.Get("user").(*jwt.Token)
	claims := token.Claims.(*jwtCustomClaims)
	return claims.Subject
}

func parseIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid id parameter")
	}
	return uint(id), nil
}
