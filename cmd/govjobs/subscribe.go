package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/funtuan/government-job-backend/internal/model"
	"github.com/funtuan/government-job-backend/internal/notify"
)

var (
	subCode        string
	subRedirectURI string
	subToken       string
	subJobType     string
	subRegions     []string
	subFamilies    []string
	subNoDisabled  bool
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Register a subscriber",
	Long:  "Exchanges a LINE Notify OAuth code for an access token (or takes a token directly), stores the subscription with its filter condition, and sends a welcome message.",
	RunE:  runSubscribe,
}

func init() {
	subscribeCmd.Flags().StringVar(&subCode, "code", "", "LINE Notify OAuth authorization code")
	subscribeCmd.Flags().StringVar(&subRedirectURI, "redirect-uri", "", "redirect URI used in the OAuth authorization request")
	subscribeCmd.Flags().StringVar(&subToken, "token", "", "LINE Notify access token (skips the code exchange)")
	subscribeCmd.Flags().StringVar(&subJobType, "job-type", "", "job type substring the subscriber wants (empty = any)")
	subscribeCmd.Flags().StringSliceVar(&subRegions, "region", nil, "allowed regions; repeatable (empty = any)")
	subscribeCmd.Flags().StringSliceVar(&subFamilies, "family", nil, "allowed job families; repeatable (empty = any)")
	subscribeCmd.Flags().BoolVar(&subNoDisabled, "exclude-accessibility", false, "exclude listings reserved for accessibility-certificate holders")
	rootCmd.AddCommand(subscribeCmd)
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setupApp(ctx)
	if err != nil {
		os.Exit(1)
	}
	defer a.Close()

	token := subToken
	if token == "" {
		if subCode == "" {
			a.logger.Error("either --token or --code is required")
			os.Exit(1)
		}
		exchanger := notify.NewTokenExchanger(
			notify.DefaultTokenURL,
			a.cfg.Line.ClientID,
			a.cfg.Line.ClientSecret,
			&http.Client{Timeout: a.cfg.Feed.Timeout},
		)
		token, err = exchanger.Exchange(ctx, subCode, subRedirectURI)
		if err != nil {
			a.logger.Error("token exchange failed", "error", err)
			os.Exit(1)
		}
	}

	cond := model.FilterCondition{
		Regions:     subRegions,
		JobFamilies: subFamilies,
	}
	if subJobType != "" {
		cond.JobType = &subJobType
	}
	if subNoDisabled {
		noAccess := false
		cond.RequiresAccessibility = &noAccess
	}

	condJSON, err := json.Marshal(cond)
	if err != nil {
		return fmt.Errorf("encode condition: %w", err)
	}

	sub := model.Subscription{
		ID:        uuid.NewString(),
		Token:     token,
		Condition: condJSON,
	}
	if err := a.subs.Create(ctx, sub); err != nil {
		a.logger.Error("failed to store subscription", "error", err)
		os.Exit(1)
	}

	channel := notify.NewClient(notify.DefaultAPIURL, &http.Client{Timeout: a.cfg.Feed.Timeout}, a.logger)
	if err := channel.Send(ctx, welcomeMessage(cond), token); err != nil {
		// The subscription is already stored; a failed welcome is not fatal.
		a.logger.Warn("welcome message failed", "error", err)
	}

	a.logger.Info("subscription created", "id", sub.ID)
	fmt.Println(sub.ID)
	return nil
}

func welcomeMessage(cond model.FilterCondition) string {
	anyOr := func(vals []string) string {
		if len(vals) == 0 {
			return "不限"
		}
		return strings.Join(vals, "、")
	}

	jobType := "不限"
	if cond.JobType != nil {
		jobType = *cond.JobType
	}
	excluded := "否"
	if cond.RequiresAccessibility != nil && !*cond.RequiresAccessibility {
		excluded = "是"
	}

	return fmt.Sprintf(
		"您已成功訂閱職缺通知\n官等: %s\n縣市: %s\n職系: %s\n是否排除身心障礙職缺: %s",
		jobType,
		anyOr(cond.Regions),
		anyOr(cond.JobFamilies),
		excluded,
	)
}
