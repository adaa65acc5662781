package routes

import (
	"messenger/api/handlers"
	"messenger/api/middleware"
	"messenger/services"

	"github.com/gin-gonic/gin"
)

// MessengerApi - авторизованная часть API: диалоги, сообщения, медиа,
// друзья, вебсокеты
func MessengerApi(router *gin.Engine, auth *services.AuthService) *gin.RouterGroup {
	endpoints := router.Group("/api/v1/")
	endpoints.Use(middleware.AuthMiddleware(auth))
	{
		// Диалоги
		endpoints.GET("conversations/list", handlers.ListConversationsHandler)
		endpoints.POST("conversations/:id/hide", handlers.HideConversationHandler)
		endpoints.POST("conversations/:id/restore", handlers.RestoreConversationHandler)
		endpoints.POST("conversations/:id/read", handlers.MarkReadHandler)

		// Сообщения
		endpoints.POST("dialog/:user_id/send", handlers.SendMessageHandler)
		endpoints.GET("dialog/:user_id/list", handlers.ListDialogHandler)
		endpoints.POST("message/:id/edit", handlers.EditMessageHandler)
		endpoints.POST("message/:id/delete", handlers.DeleteMessageHandler)

		// Медиа и гифки
		endpoints.POST("media/upload", handlers.UploadMediaHandler)
		endpoints.GET("gifs/:shortcode", handlers.GetGifHandler)

		// Друзья
		endpoints.POST("friends/add", handlers.AddFriend)
		endpoints.POST("friends/approve", handlers.ApproveFriend)
		endpoints.POST("friends/delete", handlers.DeleteFriend)

		// Профили и присутствие
		endpoints.GET("user/get/:id", handlers.UserGet)
		endpoints.POST("presence/ping", handlers.PresencePing)

		// Вебсокеты
		endpoints.GET("ws", handlers.WSNotifyHandler)
		endpoints.GET("ws/dialog/:user_id", handlers.WSDialogHandler)
	}
	return endpoints
}
