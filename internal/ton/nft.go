package ton

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton/wallet"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/httpx"
)

// Listing is one NFT offered for sale on the marketplace.
type Listing struct {
	NFTAddress  string
	SaleAddress string
	PriceNano   *big.Int
}

// XRareClient queries the marketplace's collection filter API for listings.
type XRareClient struct {
	http    *httpx.Client
	baseURL string
}

func NewXRareClient(httpClient *httpx.Client) *XRareClient {
	return &XRareClient{
		http:    httpClient,
		baseURL: "https://api.xrare.io",
	}
}

type filterRequest struct {
	Collection string `json:"collection"`
	OnSale     bool   `json:"on_sale"`
	Sort       string `json:"sort"`
	Limit      int    `json:"limit"`
}

type filterResponse struct {
	Items []struct {
		Address string `json:"address"`
		Sale    struct {
			Address string `json:"address"`
			Price   string `json:"price"`
		} `json:"sale"`
	} `json:"items"`
}

// CheapestOnSale returns the lowest-priced listing of a collection.
func (x *XRareClient) CheapestOnSale(ctx context.Context, collection string) (Listing, error) {
	body, err := json.Marshal(filterRequest{
		Collection: collection,
		OnSale:     true,
		Sort:       "price_asc",
		Limit:      1,
	})
	if err != nil {
		return Listing{}, swaperr.Wrap(swaperr.CodeInternal, "encode listing filter", err)
	}

	var resp filterResponse
	endpoint := x.baseURL + "/api/v2/nfts/filter"
	if _, err := httpx.DoBodyJSON(ctx, x.http, http.MethodPost, endpoint, body, nil, &resp); err != nil {
		return Listing{}, err
	}
	for _, item := range resp.Items {
		if item.Sale.Address == "" {
			continue
		}
		price, ok := new(big.Int).SetString(item.Sale.Price, 10)
		if !ok {
			continue
		}
		return Listing{
			NFTAddress:  item.Address,
			SaleAddress: item.Sale.Address,
			PriceNano:   price,
		}, nil
	}
	return Listing{}, swaperr.New(swaperr.CodeQuoteUnavailable, "collection has no purchasable listing")
}

// PurchaseTotal is the amount sent to a sale contract: the full price plus a
// fixed buffer for marketplace and forwarding fees.
func PurchaseTotal(price *big.Int) *big.Int {
	return new(big.Int).Add(price, nftPurchaseBuffer)
}

// BuyNFT buys the cheapest listed NFT of a collection. The sale contract is
// verified through its getter before any TON moves; the price paid is the
// contract's own, not the marketplace cache.
func (t *Trader) BuyNFT(ctx context.Context, mnemonic, collection string, maxPrice *big.Int) (Listing, error) {
	listing, err := t.xrare.CheapestOnSale(ctx, collection)
	if err != nil {
		return Listing{}, err
	}

	sale, err := t.tonapi.SaleData(ctx, listing.SaleAddress)
	if err != nil {
		return Listing{}, err
	}
	if sale.Complete {
		return Listing{}, swaperr.New(swaperr.CodeQuoteUnavailable, "sale contract already completed")
	}
	listing.PriceNano = sale.FullPrice

	if maxPrice != nil && sale.FullPrice.Cmp(maxPrice) > 0 {
		return Listing{}, swaperr.New(swaperr.CodeUsage, "listing price exceeds the configured maximum")
	}

	w, err := t.walletFromMnemonic(mnemonic)
	if err != nil {
		return Listing{}, err
	}
	dest, err := address.ParseAddr(listing.SaleAddress)
	if err != nil {
		return Listing{}, swaperr.Wrap(swaperr.CodeMalformedResponse, "parse sale address", err)
	}

	msg := wallet.SimpleMessage(dest, tlb.FromNanoTON(PurchaseTotal(sale.FullPrice)), nil)
	if err := w.Send(ctx, msg, true); err != nil {
		return Listing{}, swaperr.Wrap(swaperr.CodeBroadcast, "send purchase", err)
	}

	t.log.WithFields(map[string]interface{}{
		"nft":  listing.NFTAddress,
		"sale": listing.SaleAddress,
	}).Infof("nft purchase sent")

	return listing, nil
}
