package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/asset_tracker/internal/converter/telebotConverter"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/service"
	"github.com/KotFed0t/asset_tracker/internal/service/portfolioService"
	"github.com/KotFed0t/asset_tracker/utils"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const internalErrMsg = "something went wrong, the portfolio was not changed"

type PortfolioService interface {
	Snapshot(ctx context.Context) model.Snapshot
	Status() model.RefreshStatus
	Refresh(ctx context.Context) (model.Snapshot, error)
	AddAsset(ctx context.Context, in model.AssetInput) (model.Asset, error)
	EditQuantity(ctx context.Context, id int64, quantity decimal.Decimal) (model.Asset, bool, error)
	RemoveAsset(ctx context.Context, id int64) (bool, error)
	Export(ctx context.Context) ([]byte, error)
	Report(ctx context.Context) (fileBytes []byte, fileExtension string, err error)
}

type Controller struct {
	portfolioService PortfolioService
}

func NewController(portfolioService PortfolioService) *Controller {
	return &Controller{portfolioService: portfolioService}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send(telebotConverter.HelpText)
}

// Portfolio shows the overview, or one class when it is given as the argument.
func (ctrl *Controller) Portfolio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	var class model.AssetClass
	if args := c.Args(); len(args) > 0 {
		parsed, ok := model.ParseAssetClass(args[0])
		if !ok {
			return c.Send("unknown class " + args[0])
		}
		class = parsed
	}

	text, markup := telebotConverter.PortfolioResponse(ctrl.portfolioService.Snapshot(ctx), ctrl.portfolioService.Status(), class)
	return c.Send(text, markup, tele.ModeHTML)
}

func (ctrl *Controller) Refresh(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	snapshot, err := ctrl.portfolioService.Refresh(ctx)
	if err != nil {
		slog.Error("got error from portfolioService.Refresh", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	text, markup := telebotConverter.PortfolioResponse(snapshot, ctrl.portfolioService.Status(), "")
	return c.Send(text, markup, tele.ModeHTML)
}

// AddAsset handles /add <class> <symbol> <quantity> <cost> [currency].
func (ctrl *Controller) AddAsset(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) < 4 {
		return c.Send("usage: /add <class> <symbol> <quantity> <cost> [currency]")
	}
	currency := ""
	if len(args) > 4 {
		currency = args[4]
	}

	in, err := portfolioService.ParseAssetInput(args[0], args[1], args[2], args[3], currency)
	if err != nil {
		return ctrl.sendErr(ctx, c, err)
	}

	asset, err := ctrl.portfolioService.AddAsset(ctx, in)
	if err != nil {
		return ctrl.sendErr(ctx, c, err)
	}

	return c.Send(telebotConverter.AssetSavedResponse(asset))
}

// EditQuantity handles /edit <id> <quantity>.
func (ctrl *Controller) EditQuantity(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) != 2 {
		return c.Send("usage: /edit <id> <quantity>")
	}

	id, err := parseID(args[0])
	if err != nil {
		return ctrl.sendErr(ctx, c, err)
	}
	quantity, err := portfolioService.ParseDecimal("quantity", args[1])
	if err != nil {
		return ctrl.sendErr(ctx, c, err)
	}

	asset, found, err := ctrl.portfolioService.EditQuantity(ctx, id, quantity)
	if err != nil {
		return ctrl.sendErr(ctx, c, err)
	}
	if !found {
		return c.Send("no asset #" + args[0])
	}

	return c.Send(telebotConverter.AssetSavedResponse(asset))
}

// InitRemove asks for confirmation before /remove <id> deletes anything.
func (ctrl *Controller) InitRemove(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) != 1 {
		return c.Send("usage: /remove <id>")
	}
	id, err := parseID(args[0])
	if err != nil {
		return ctrl.sendErr(ctx, c, err)
	}

	for _, v := range ctrl.portfolioService.Snapshot(ctx).Assets {
		if v.Asset.ID == id {
			return c.Send(telebotConverter.RemoveConfirmResponse(v.Asset))
		}
	}
	return c.Send("no asset #" + args[0])
}

func (ctrl *Controller) ConfirmRemove(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	_ = c.Respond()

	id, err := parseID(c.Callback().Data)
	if err != nil {
		return ctrl.sendErr(ctx, c, err)
	}

	removed, err := ctrl.portfolioService.RemoveAsset(ctx, id)
	if err != nil {
		return ctrl.sendErr(ctx, c, err)
	}
	if !removed {
		return c.Edit("asset was already deleted")
	}
	return c.Edit("🗑 deleted #" + c.Callback().Data)
}

func (ctrl *Controller) CancelRemove(c tele.Context) error {
	_ = c.Respond()
	return c.Edit("kept")
}

// ShowClass redraws the portfolio message for the class in the callback data.
func (ctrl *Controller) ShowClass(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	_ = c.Respond()

	class, _ := model.ParseAssetClass(c.Callback().Data)
	text, markup := telebotConverter.PortfolioResponse(ctrl.portfolioService.Snapshot(ctx), ctrl.portfolioService.Status(), class)
	return editIfChanged(c, text, markup)
}

func (ctrl *Controller) RefreshCallback(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	snapshot, err := ctrl.portfolioService.Refresh(ctx)
	if err != nil {
		slog.Error("got error from portfolioService.Refresh", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Respond(&tele.CallbackResponse{Text: internalErrMsg})
	}
	_ = c.Respond(&tele.CallbackResponse{Text: "refreshed"})

	class, _ := model.ParseAssetClass(c.Callback().Data)
	text, markup := telebotConverter.PortfolioResponse(snapshot, ctrl.portfolioService.Status(), class)
	return editIfChanged(c, text, markup)
}

func (ctrl *Controller) Export(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	blob, err := ctrl.portfolioService.Export(ctx)
	if err != nil {
		return ctrl.sendErr(ctx, c, err)
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(blob)),
		FileName: "investment-portfolio.json",
		MIME:     "application/json",
	}
	return c.Send(doc)
}

func (ctrl *Controller) Report(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	data, ext, err := ctrl.portfolioService.Report(ctx)
	if err != nil {
		return ctrl.sendErr(ctx, c, err)
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: "portfolio" + ext,
	}
	return c.Send(doc)
}

// sendErr shows input errors to the user and hides everything else behind
// internalErrMsg.
func (ctrl *Controller) sendErr(ctx context.Context, c tele.Context, err error) error {
	if errors.Is(err, service.ErrValidation) {
		return c.Send(strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": "))
	}
	slog.Error("telegram command failed", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
	return c.Send(internalErrMsg)
}

func editIfChanged(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	err := c.Edit(text, markup, tele.ModeHTML)
	if errors.Is(err, tele.ErrSameMessageContent) {
		return nil
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id must be a number", service.ErrValidation)
	}
	return id, nil
}
