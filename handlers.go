package main

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"tollgate/models"
	"tollgate/pkg/toll"
)

func setupRoutes(r *gin.Engine, sys *System) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "vehicles": sys.Registry.Len()})
	})
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)

	api := r.Group("/api/v1")
	api.Use(jwtAuthMiddleware())
	api.POST("/captures", captureHandler(sys))
	api.GET("/vehicles/:key", getVehicleHandler(sys))
	api.POST("/vehicles/:key/topup", topupHandler(sys))
	api.GET("/transactions", listTransactionsHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterOperator(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "operator registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	op, err := AuthenticateOperator(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": op.Username,
		"role":     op.Role,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

// captureHandler accepts one frame as a multipart upload and runs it
// through the pipeline. The outcome maps onto the response status so lane
// clients can branch without parsing the body.
func captureHandler(sys *System) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("frame")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "frame missing"})
			return
		}
		if file.Size > 10*1024*1024 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "frame too large (max 10MB)"})
			return
		}
		// stage under a unique name; concurrent lanes upload frames with
		// identical camera-default filenames
		staged, err := os.CreateTemp("", "capture-*"+filepath.Ext(file.Filename))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
			return
		}
		tmp := staged.Name()
		_ = staged.Close()
		defer os.Remove(tmp)
		if err := c.SaveUploadedFile(file, tmp); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
			return
		}

		out := sys.Pipeline.ProcessFile(tmp)
		c.JSON(statusCodeFor(out.Status), out)
	}
}

func statusCodeFor(s toll.Status) int {
	switch s {
	case toll.StatusBilled:
		return http.StatusOK
	case toll.StatusInvalidImage:
		return http.StatusBadRequest
	case toll.StatusInsufficientFunds:
		return http.StatusPaymentRequired
	case toll.StatusVehicleUnknown:
		return http.StatusNotFound
	case toll.StatusPlateNotFound:
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

func getVehicleHandler(sys *System) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := sys.Registry.Lookup(c.Param("key"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"plate":   v.Plate,
			"rfid":    v.RFID,
			"class":   v.Class,
			"balance": toll.FormatAmount(v.Balance()),
		})
	}
}

// topupHandler credits a vehicle account; administrators only. The updated
// registry is snapshotted back to disk so the credit survives a restart.
func topupHandler(sys *System) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if role != "administrator" {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		var req struct {
			Amount string `json:"amount" binding:"required"` // decimal, e.g. "100.00"
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cents, err := toll.ParseAmount(req.Amount)
		if err != nil || cents <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive decimal"})
			return
		}
		balance, err := sys.Registry.Credit(c.Param("key"), cents)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err := sys.Registry.Snapshot(sys.Files.ConfigPath("registered_vehicles.csv")); err != nil {
			sys.Log.Error().Err(err).Msg("registry snapshot failed")
		}
		c.JSON(http.StatusOK, gin.H{"balance": toll.FormatAmount(balance)})
	}
}

// listTransactionsHandler queries the DB archive of billed transactions.
func listTransactionsHandler(c *gin.Context) {
	var rows []models.TollTransaction
	q := db.Model(&models.TollTransaction{})
	if key := c.Query("vehicle"); key != "" {
		q = q.Where("vehicle_key = ?", key)
	}
	if err := q.Order("id desc").Limit(200).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
