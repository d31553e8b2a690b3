package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/artsarchive/giving/internal/app/api/server"
	"github.com/artsarchive/giving/internal/app/service/checkout"
	"github.com/artsarchive/giving/internal/app/service/payment"
	"github.com/artsarchive/giving/internal/app/service/receipt"
	"github.com/artsarchive/giving/internal/app/service/recurring"
	"github.com/artsarchive/giving/internal/platform/cybersource"
	"github.com/artsarchive/giving/internal/platform/db"
	"github.com/artsarchive/giving/internal/platform/mail"
	"github.com/artsarchive/giving/pkg/config"
	"github.com/artsarchive/giving/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	cybersource.Module,
	mail.Module,
	payment.Module,
	checkout.Module,
	receipt.Module,
	recurring.Module,
	server.Module,
)
