package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	s.router.GET("/api/health", s.health)

	s.router.POST("/api/chat", s.chat)

	s.router.POST("/api/payment", s.verifyPayment)
	s.router.GET("/api/payment", s.paymentStatus)
	s.router.POST("/api/payment/mainnet", s.sendMainnetPayment)
	s.router.GET("/api/payment/mainnet", s.mainnetPaymentStatus)

	s.router.POST("/api/reward", s.reward)

	s.router.GET("/api/sessions", s.listSessions)
	s.router.POST("/api/sessions", s.saveSession)
	s.router.GET("/api/messages", s.listMessages)
	s.router.POST("/api/messages", s.saveMessage)
}
