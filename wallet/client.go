package wallet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nutmint/gonuts/cashu"
)

// getJSON issues a GET request and decodes a successful response into dst.
func getJSON(reqUrl string, dst any) error {
	resp, err := http.Get(reqUrl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkMintError(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// postJSON marshals body, POSTs it, and decodes a successful response into dst.
func postJSON(reqUrl string, body, dst any) error {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("json.Marshal: %v", err)
	}

	resp, err := http.Post(reqUrl, "application/json", bytes.NewBuffer(requestBody))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkMintError(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// checkMintError reads a non-200 response as a cashu.Error.
func checkMintError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var cashuErr cashu.Error
	if err := json.Unmarshal(body, &cashuErr); err != nil {
		return fmt.Errorf("%s", body)
	}
	return cashuErr
}

// getMintPaymentRequest asks the mint for a Lightning invoice to mint
// amount, returning the invoice and the hash the subsequent mint_tokens
// call must echo back.
func getMintPaymentRequest(mintURL string, amount uint64) (*cashu.GetMintResponse, error) {
	reqUrl := mintURL + "/mint?amount=" + strconv.FormatUint(amount, 10)

	var mintResponse cashu.GetMintResponse
	if err := getJSON(reqUrl, &mintResponse); err != nil {
		return nil, err
	}
	return &mintResponse, nil
}

// postMint requests signatures on outputs for the invoice identified by
// hash. While the invoice remains unpaid the mint returns an empty
// Promises list rather than an error; the caller is expected to poll.
func postMint(mintURL, hash string, outputs cashu.BlindedMessages) (*cashu.PostMintResponse, error) {
	reqUrl := mintURL + "/mint?" + url.Values{"hash": {hash}}.Encode()

	var mintResponse cashu.PostMintResponse
	if err := postJSON(reqUrl, cashu.PostMintRequest{Outputs: outputs}, &mintResponse); err != nil {
		return nil, err
	}
	return &mintResponse, nil
}

func postSplit(mintURL string, splitRequest cashu.PostSplitRequest) (*cashu.PostSplitResponse, error) {
	var splitResponse cashu.PostSplitResponse
	if err := postJSON(mintURL+"/split", splitRequest, &splitResponse); err != nil {
		return nil, err
	}
	return &splitResponse, nil
}

func postMelt(mintURL string, meltRequest cashu.PostMeltRequest) (*cashu.PostMeltResponse, error) {
	var meltResponse cashu.PostMeltResponse
	if err := postJSON(mintURL+"/melt", meltRequest, &meltResponse); err != nil {
		return nil, err
	}
	return &meltResponse, nil
}

func postCheckFees(mintURL, paymentRequest string) (*cashu.PostCheckFeesResponse, error) {
	var feesResponse cashu.PostCheckFeesResponse
	req := cashu.PostCheckFeesRequest{PR: paymentRequest}
	if err := postJSON(mintURL+"/checkfees", req, &feesResponse); err != nil {
		return nil, err
	}
	return &feesResponse, nil
}
