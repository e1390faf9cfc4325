// AngelaMos | 2026
// dto.go

package product

import (
	"time"
)

type CreateProductRequest struct {
	Name        string   `json:"name"        validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"required,min=1,max=5000"`
	Price       *float64 `json:"price"       validate:"required,gte=0"`
	Category    string   `json:"category"    validate:"omitempty,oneof=course ebook template software graphics audio video other"`
	Type        string   `json:"type"        validate:"omitempty,oneof=digital service"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty"        validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,min=1,max=5000"`
	Price       *float64 `json:"price,omitempty"       validate:"omitempty,gte=0"`
	Category    *string  `json:"category,omitempty"    validate:"omitempty,oneof=course ebook template software graphics audio video other"`
	Type        *string  `json:"type,omitempty"        validate:"omitempty,oneof=digital service"`
}

type ListProductsParams struct {
	Page     int
	Limit    int
	Category string
	Search   string
}

func (p *ListProductsParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	if p.Limit > 50 {
		p.Limit = 50
	}
}

func (p *ListProductsParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

type ProductResponse struct {
	ID          string         `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Type        string         `json:"type"`
	Price       float64        `json:"price"`
	Published   bool           `json:"published"`
	Views       int            `json:"views"`
	Sales       int            `json:"sales"`
	Revenue     float64        `json:"revenue"`
	Files       []FileResponse `json:"files,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PublicProductResponse omits creator-only fields (revenue, views) from
// the storefront payload.
type PublicProductResponse struct {
	ID          string         `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Type        string         `json:"type"`
	Price       float64        `json:"price"`
	Files       []FileResponse `json:"files,omitempty"`
}

type FileResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	FileType     string    `json:"file_type"`
	SizeLabel    string    `json:"size"`
	MimeType     string    `json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreatorStats struct {
	TotalProducts     int     `db:"total_products"     json:"total_products"`
	PublishedProducts int     `db:"published_products" json:"published_products"`
	TotalSales        int     `db:"total_sales"        json:"total_sales"`
	TotalRevenue      float64 `db:"total_revenue"      json:"total_revenue"`
	TotalViews        int64   `db:"total_views"        json:"total_views"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Stats    CreatorStats      `json:"stats"`
}

func ToProductResponse(p *Product, files []File) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Type:        p.Type,
		Price:       p.Price,
		Published:   p.Published,
		Views:       p.Views,
		Sales:       p.Sales,
		Revenue:     p.Revenue,
		Files:       ToFileResponseList(files),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ToPublicProductResponse(p *Product, files []File) PublicProductResponse {
	return PublicProductResponse{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Type:        p.Type,
		Price:       p.Price,
		Files:       ToFileResponseList(files),
	}
}

func ToFileResponseList(files []File) []FileResponse {
	if len(files) == 0 {
		return nil
	}

	responses := make([]FileResponse, 0, len(files))
	for _, f := range files {
		responses = append(responses, FileResponse{
			ID:           f.ID,
			OriginalName: f.OriginalName,
			FileType:     f.FileType,
			SizeLabel:    f.SizeLabel,
			MimeType:     f.MimeType,
			CreatedAt:    f.CreatedAt,
		})
	}
	return responses
}
