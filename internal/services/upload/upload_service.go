package upload

import (
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/antonvlasov/badgeswap-api/internal/config"
	"github.com/antonvlasov/badgeswap-api/internal/utils"
)

// UploadService предоставляет подписанные параметры загрузки изображений в Cloudinary
type UploadService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewUploadService создает новый экземпляр UploadService
func NewUploadService(cfg *config.Config) *UploadService {
	return &UploadService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GenerateUploadParams создаёт подписанные параметры для прямой загрузки с клиента
func (s *UploadService) GenerateUploadParams(c fiber.Ctx) error {
	// Генерируем ID для объявления, если не передан
	postID := c.Query("post_id")
	if postID == "" {
		postID = uuid.New().String()
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", s.cfg.CloudinaryConfig.UploadFolder)
	params.Set("upload_preset", s.cfg.CloudinaryConfig.UploadPreset)

	signature, err := api.SignParameters(params, s.cfg.CloudinaryConfig.APISecret)
	if err != nil {
		log.Printf("Ошибка подписи параметров загрузки: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Не удалось подготовить загрузку"})
	}

	return c.JSON(fiber.Map{
		"timestamp":     timestamp,
		"signature":     signature,
		"api_key":       s.cfg.CloudinaryConfig.APIKey,
		"cloud_name":    s.cfg.CloudinaryConfig.CloudName,
		"folder":        s.cfg.CloudinaryConfig.UploadFolder,
		"upload_preset": s.cfg.CloudinaryConfig.UploadPreset,
		"post_id":       postID,
	})
}
